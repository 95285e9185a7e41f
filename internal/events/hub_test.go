package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Envelope {
	t.Helper()
	select {
	case env, ok := <-sub.Channel():
		require.True(t, ok, "subscription channel closed unexpectedly")
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Envelope{}
	}
}

func TestHubFanout(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()

	sub1 := hub.Subscribe(ctx)
	defer sub1.Close()
	sub2 := hub.Subscribe(ctx)
	defer sub2.Close()

	hub.Notify("transfer_initiated", map[string]any{"transferId": 0})

	for _, sub := range []*Subscription{sub1, sub2} {
		env := receive(t, sub)
		assert.Equal(t, "transfer_initiated", env.Type)
		assert.NotEmpty(t, env.ID)
		assert.False(t, env.At.IsZero())
	}
}

func TestHubClosedSubscriberSkipped(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()

	sub := hub.Subscribe(ctx)
	sub.Close()

	// Publishing after close must not panic or block.
	hub.Notify("pause_toggled", nil)

	_, ok := <-sub.Channel()
	assert.False(t, ok)
}

func TestHubContextCancelEndsSubscription(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	sub := hub.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-sub.Channel():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after context cancel")
	}
}

func TestHubNeverBlocksPublisher(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(context.Background())
	defer sub.Close()

	// Overflow the subscriber buffer; extra events are dropped, the
	// publisher must not stall.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			hub.Notify("network_updated", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}

func TestEnvelopeIDsUnique(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(context.Background())
	defer sub.Close()

	hub.Notify("transfer_initiated", nil)
	hub.Notify("transfer_initiated", nil)

	first := receive(t, sub)
	second := receive(t, sub)
	assert.NotEqual(t, first.ID, second.ID)
}
