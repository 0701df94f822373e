// Package events fans listing changes out to real-time subscribers.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"art_market/internal/domain"
)

// Event types
const (
	ListingCreated = "listing.created"
	ListingDeleted = "listing.deleted"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 16

// Event is a listing change with the full record.
type Event struct {
	Type       string             `json:"type"`
	Listing    domain.ListingView `json:"listing"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// Publisher delivers events to some transport.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscription is one connected observer.
type Subscription struct {
	id uint64
	ch chan Event
}

// C yields events until the subscription is removed.
func (s *Subscription) C() <-chan Event { return s.ch }

// Bus is the in-process subscriber registry. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    map[uint64]*Subscription
	dropped uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a new observer with the given buffer size.
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, ch: make(chan Event, buffer)}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes the observer and closes its channel. Safe to call twice.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		close(sub.ch)
	}
}

// Count is the number of connected observers.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped is the number of deliveries skipped because a buffer was full.
func (b *Bus) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Publish hands ev to every current subscriber without waiting.
func (b *Bus) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			b.dropped++
		}
	}
	return nil
}

// Fanout publishes to several transports and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
