package ecs

import "github.com/milk9111/physkit/ecs/component"

// EventKind discriminates component lifecycle events.
type EventKind int

const (
	EventAdded EventKind = iota
	EventModified
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	}
	return "unknown"
}

// Event records one component mutation on an entity. Value is the stored
// value for Added and Modified, and the dropped value for Removed, so
// consumers can release resources the component owned.
type Event struct {
	Entity    Entity
	Component component.ID
	Kind      EventKind
	Value     any
}

// eventLog is an append-only log with per-reader cursors, so every system
// sees every mutation exactly once regardless of scheduling order.
type eventLog struct {
	events  []Event
	base    uint64
	readers []*EventReader
}

// EventReader is a cursor over the world event log. Create readers before
// the mutations they need to observe.
type EventReader struct {
	log *eventLog
	pos uint64
}

func (l *eventLog) push(ev Event) {
	l.events = append(l.events, ev)
}

func (l *eventLog) newReader() *EventReader {
	r := &EventReader{log: l, pos: l.base + uint64(len(l.events))}
	l.readers = append(l.readers, r)
	return r
}

// compact drops events every reader has consumed. Called once per frame.
func (l *eventLog) compact() {
	if len(l.readers) == 0 {
		l.base += uint64(len(l.events))
		l.events = l.events[:0]
		return
	}
	min := l.base + uint64(len(l.events))
	for _, r := range l.readers {
		if r.pos < min {
			min = r.pos
		}
	}
	if min == l.base {
		return
	}
	drop := min - l.base
	l.events = append(l.events[:0], l.events[drop:]...)
	l.base = min
}

// Read returns the events appended since the previous call.
func (r *EventReader) Read() []Event {
	if r == nil || r.log == nil {
		return nil
	}
	start := r.pos - r.log.base
	if start > uint64(len(r.log.events)) {
		start = uint64(len(r.log.events))
	}
	out := r.log.events[start:]
	r.pos = r.log.base + uint64(len(r.log.events))
	return out
}
