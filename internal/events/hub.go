// Package events is the in-process fanout for bridge notifications. Every
// successful ledger mutation publishes one envelope; subscribers (the SSE
// stream, tests) receive them on buffered channels. Delivery is
// fire-and-forget and never blocks the publisher.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps one bridge event for external observers.
type Envelope struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// Subscription is one observer's view of the event stream.
type Subscription struct {
	ch      chan Envelope
	closeCh chan struct{}
	closed  bool
	mu      sync.Mutex
}

// Channel returns the event channel. It is closed when the subscription ends.
func (s *Subscription) Channel() <-chan Envelope {
	return s.ch
}

// Close ends the subscription.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.closeCh)
		close(s.ch)
	}
}

func (s *Subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// send delivers an envelope without blocking. A subscriber that cannot keep
// up loses events rather than stalling the ledger.
func (s *Subscription) send(env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.ch <- env:
	default:
		// Subscriber buffer full, drop the event.
	}
}

// Hub manages subscriptions and fans events out to all of them.
type Hub struct {
	subscribers []*Subscription
	mu          sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers a new observer. The subscription ends when ctx is
// cancelled or Close is called, whichever comes first.
func (h *Hub) Subscribe(ctx context.Context) *Subscription {
	sub := &Subscription{
		ch:      make(chan Envelope, 100),
		closeCh: make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers = append(h.subscribers, sub)
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.closeCh:
		}

		h.mu.Lock()
		defer h.mu.Unlock()

		for i, s := range h.subscribers {
			if s == sub {
				h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
				break
			}
		}
	}()

	return sub
}

// Publish fans an envelope out to every live subscriber.
func (h *Hub) Publish(env Envelope) {
	h.mu.RLock()
	subscribers := make([]*Subscription, len(h.subscribers))
	copy(subscribers, h.subscribers)
	h.mu.RUnlock()

	for _, sub := range subscribers {
		if !sub.isClosed() {
			sub.send(env)
		}
	}
}

// Notify implements the ledger's notifier contract: it stamps the payload
// into an envelope and publishes it. It never blocks.
func (h *Hub) Notify(eventType string, payload any) {
	h.Publish(Envelope{
		ID:      uuid.NewString(),
		Type:    eventType,
		At:      time.Now().UTC(),
		Payload: payload,
	})
}
