package physics

import (
	"fmt"
	"sort"
	"sync"
)

// Backend is implemented once per physics engine. NewWorld returns a fresh
// simulation world wrapped in the server facade.
type Backend interface {
	Name() string
	NewWorld() (*World, error)
}

var (
	backendsMu sync.RWMutex
	backends   = map[string]Backend{}
)

// Register makes a backend selectable by name. Backend packages call it
// from init; registering the same name twice panics.
func Register(b Backend) {
	if b == nil || b.Name() == "" {
		panic("physics: Register with nil or unnamed backend")
	}
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if _, dup := backends[b.Name()]; dup {
		panic(fmt.Sprintf("physics: backend %q registered twice", b.Name()))
	}
	backends[b.Name()] = b
}

// Open creates a world from the named backend.
func Open(name string) (*World, error) {
	backendsMu.RLock()
	b, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("physics: unknown backend %q (registered: %v)", name, Backends())
	}
	return b.NewWorld()
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
