package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windlass-io/windlass/pkg/events"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	bus := NewWatermillEventBus(pubSub, pubSub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBus_PublishSubscribeRoundTrip(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *events.ExecutionCompleted, 1)

	err := bus.Handle(events.ExecutionCompletedEvent, func(_ context.Context, event any) error {
		completed, ok := event.(*events.ExecutionCompleted)
		require.True(t, ok)
		received <- completed

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	published := &events.ExecutionCompleted{
		BaseEvent: events.BaseEvent{
			ID:          bus.GenerateID(),
			Type:        events.ExecutionCompletedEvent,
			Timestamp:   time.Now().UTC(),
			WorkflowID:  "wf-1",
			ExecutionID: "exec-1",
		},
		Duration: 2 * time.Second,
	}

	require.NoError(t, bus.Publish(ctx, "exec-1", published))

	select {
	case got := <-received:
		assert.Equal(t, "exec-1", got.ExecutionID)
		assert.Equal(t, "wf-1", got.WorkflowID)
		assert.Equal(t, 2*time.Second, got.Duration)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_UnhandledEventTypeIsAcked(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan any, 2)

	err := bus.Handle(events.NodeStartedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for this one; it must not wedge the stream.
	require.NoError(t, bus.Publish(ctx, "exec-1", &events.ExecutionStarted{
		BaseEvent: events.BaseEvent{Type: events.ExecutionStartedEvent, ExecutionID: "exec-1"},
	}))
	require.NoError(t, bus.Publish(ctx, "exec-1", &events.NodeStarted{
		BaseEvent: events.BaseEvent{Type: events.NodeStartedEvent, ExecutionID: "exec-1"},
		NodeID:    "n1",
	}))

	select {
	case event := <-received:
		started, ok := event.(*events.NodeStarted)
		require.True(t, ok)
		assert.Equal(t, "n1", started.NodeID)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_GenerateIDIsUnique(t *testing.T) {
	bus := newTestBus(t)

	seen := make(map[string]bool)

	for range 100 {
		id := bus.GenerateID()
		assert.NotEmpty(t, id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestNewEventBus_DefaultsToGoChannel(t *testing.T) {
	bus, err := NewEventBus("")
	require.NoError(t, err)
	require.NotNil(t, bus)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	assert.NotEmpty(t, bus.GenerateID())
}
