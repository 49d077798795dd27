package pathing

import (
	"fmt"
	"sync/atomic"
)

// EventKind is the kind of an entity lifecycle event.
type EventKind uint8

const (
	EventCreated EventKind = iota
	EventMoved
	EventDying
	EventDestroyed
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventMoved:
		return "moved"
	case EventDying:
		return "dying"
	case EventDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// Event is an entity lifecycle notification. Position and Footprint are
// set for Created and Moved events.
type Event struct {
	Kind      EventKind
	Entity    EntityID
	Position  Cell
	Footprint Footprint
}

// EventBridge is a bounded queue between entity producers and the
// coordinator. Producers never block: when the queue is full the event is
// dropped and counted. Push is safe from any goroutine; Drain belongs to the
// tick loop.
type EventBridge struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewEventBridge creates a bridge holding at most capacity events.
func NewEventBridge(capacity int) *EventBridge {
	return &EventBridge{ch: make(chan Event, max(capacity, 1))}
}

// Push enqueues ev and reports whether it was accepted.
func (b *EventBridge) Push(ev Event) bool {
	select {
	case b.ch <- ev:
		return true
	default:
		b.dropped.Add(1)
		return false
	}
}

// Drain hands every event queued at call time to fn, oldest first, and
// returns how many were handled.
func (b *EventBridge) Drain(fn func(Event)) int {
	n := len(b.ch)
	for i := 0; i < n; i++ {
		select {
		case ev := <-b.ch:
			fn(ev)
		default:
			return i
		}
	}
	return n
}

// DrainAll returns every event queued at call time.
func (b *EventBridge) DrainAll() []Event {
	var out []Event
	b.Drain(func(ev Event) { out = append(out, ev) })
	return out
}

// Len returns the number of queued events.
func (b *EventBridge) Len() int { return len(b.ch) }

// Cap returns the queue capacity.
func (b *EventBridge) Cap() int { return cap(b.ch) }

// Dropped returns how many events were rejected because the queue was full.
func (b *EventBridge) Dropped() uint64 { return b.dropped.Load() }
