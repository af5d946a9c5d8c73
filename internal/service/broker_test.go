package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/portfolio"
)

func TestBrokerDeliversUntilCancelled(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())

	events, err := b.Subscribe(ctx)
	require.NoError(t, err)

	b.Notify(context.Background(), portfolio.Event{Resource: portfolio.ResourceSkills, Action: portfolio.ActionReorder})
	select {
	case ev := <-events:
		assert.Equal(t, portfolio.ActionReorder, ev.Action)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	_, open := <-events
	assert.False(t, open)

	b.Notify(context.Background(), portfolio.Event{Resource: portfolio.ResourceSkills})
}

func TestBrokerDoesNotBlockOnSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := b.Subscribe(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			b.Notify(context.Background(), portfolio.Event{Resource: portfolio.ResourceSkills})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notify blocked")
	}
}
