// Package events is the core's in-process publish/subscribe bus, grounded
// on the teacher's internal/events/bus.go. It replaces the teacher's NATS
// deployment (multi-machine agent-to-Captain messaging) for the
// Session Orchestration Core, which per spec is single-process: every
// consumer here lives in the same binary, so an embedded channel bus
// serves the same fan-out role NATS would without a network hop.
//
// This bus is for internal wiring between components (the Session Manager
// publishes lifecycle events; the binary's audit logger subscribes) — not
// the externally observed Status
// Broadcaster (internal/broadcaster), which has its own, spec-mandated
// drop-oldest backpressure policy. This bus keeps the teacher's original
// retry-then-drop-newest policy, appropriate for internal signals where a
// dropped duplicate costs nothing but silent starvation would.
package events

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	subscriberBuffer       = 64
	maxBackpressureRetries = 3
	backpressureRetryDelay = 10 * time.Millisecond
)

// Event is a tagged internal notification. ID is assigned by NewEvent at
// construction, the same way the teacher's internal/events/types.go stamps
// every event with a fresh uuid.New().String().
type Event struct {
	ID     string
	Type   string
	TaskID string
	Data   any
}

// NewEvent builds an Event with a fresh ID.
func NewEvent(eventType, taskID string, data any) Event {
	return Event{ID: uuid.New().String(), Type: eventType, TaskID: taskID, Data: data}
}

type subscription struct {
	id      uint64
	types   map[string]struct{} // empty means "all types"
	ch      chan Event
	dropped uint64
}

// Bus fans internal events out to subscribers with bounded buffering.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*subscription)}
}

// Subscribe registers a new subscriber for the given event types (empty
// means all types) and returns its channel and an unsubscribe function.
func (b *Bus) Subscribe(types ...string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	sub := &subscription{id: id, types: set, ch: make(chan Event, subscriberBuffer)}
	b.subs[id] = sub

	return sub.ch, func() { b.unsubscribe(id) }
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		close(sub.ch)
		delete(b.subs, id)
	}
}

// Publish delivers ev to every matching subscriber, retrying briefly on a
// full channel before dropping and logging.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	targets := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if matchesType(sub, ev.Type) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		b.sendWithBackpressure(sub, ev)
	}
}

func matchesType(sub *subscription, t string) bool {
	if len(sub.types) == 0 {
		return true
	}
	_, ok := sub.types[t]
	return ok
}

func (b *Bus) sendWithBackpressure(sub *subscription, ev Event) {
	for attempt := 0; attempt < maxBackpressureRetries; attempt++ {
		select {
		case sub.ch <- ev:
			return
		default:
			time.Sleep(backpressureRetryDelay)
		}
	}
	sub.dropped++
	log.Printf("[EVENTS] dropping event %q for task %s: subscriber %d backlog full (total dropped: %d)",
		ev.Type, ev.TaskID, sub.id, sub.dropped)
}
