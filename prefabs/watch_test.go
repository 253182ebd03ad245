package prefabs

import "testing"

func TestWatcherCloseClosesChannels(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	// The run goroutine owns the channels and closes them on shutdown.
	if _, ok := <-w.Events; ok {
		t.Fatal("Events delivered a value after Close")
	}
	if _, ok := <-w.Errors; ok {
		t.Fatal("Errors delivered a value after Close")
	}
}
