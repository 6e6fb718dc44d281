// Package broadcaster implements the Status Broadcaster (§4.3): fan-out of
// session snapshots to subscribed clients with a bounded per-subscriber
// queue that drops the oldest pending snapshot when full. Grounded on the
// teacher's internal/server/hub.go (register/unregister/broadcast channel
// shape, WebSocket Hub/Client split) but the backpressure policy differs
// deliberately: the teacher closes a client whose send buffer is full;
// the spec instead requires drop-oldest so a slow subscriber can never
// lose its connection to ordinary backpressure, only to a real
// disconnect. Subscriber delivery is otherwise at-most-once per snapshot,
// in publish order per subscriber (§8 invariant 6).
package broadcaster

import (
	"log"
	"sync"

	"github.com/sessionforge/sessionforge/internal/types"
)

// subscriberQueueSize is the bounded queue size the spec names ("e.g. 16").
const subscriberQueueSize = 16

// Subscriber is a transient push channel owned exclusively by the
// Broadcaster (§3 "Subscribers are exclusively owned by the Status
// Broadcaster").
type Subscriber struct {
	id  uint64
	out chan types.Snapshot
	mu  sync.Mutex
}

// Broadcaster maintains the set of subscribers and fans out published
// snapshots.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscriber
	nextID uint64
}

// New constructs an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{subs: make(map[uint64]*Subscriber)}
}

// Subscribe registers a new subscriber and returns its receive channel and
// an unsubscribe function.
func (b *Broadcaster) Subscribe() (<-chan types.Snapshot, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	sub := &Subscriber{id: id, out: make(chan types.Snapshot, subscriberQueueSize)}
	b.subs[id] = sub

	return sub.out, func() { b.unsubscribe(id) }
}

func (b *Broadcaster) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		close(sub.out)
		delete(b.subs, id)
	}
}

// Publish delivers snap to every subscriber. A subscriber whose channel is
// full loses its oldest pending snapshot, never the newest, and never
// blocks the publisher.
func (b *Broadcaster) Publish(snap types.Snapshot) {
	b.mu.RLock()
	targets := make([]*Subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		sub.send(snap)
	}
}

func (sub *Subscriber) send(snap types.Snapshot) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	select {
	case sub.out <- snap:
		return
	default:
	}

	// Full: drop the oldest pending snapshot and retry once. Draining one
	// slot here races benignly with the subscriber's own reader; at worst
	// we drop slightly more than strictly necessary, never less.
	select {
	case dropped := <-sub.out:
		log.Printf("[BROADCASTER] subscriber %d queue full, dropping snapshot from %s", sub.id, dropped.PublishedAt)
	default:
	}

	select {
	case sub.out <- snap:
	default:
		log.Printf("[BROADCASTER] subscriber %d still full after drop, giving up on this snapshot", sub.id)
	}
}

// Count returns the current number of live subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
