package eventbus

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funcmodel/funcmodel/pkg/events"
)

func TestGoChannelEventBus_RoundTrip(t *testing.T) {
	bus := NewGoChannelEventBus(slog.Default())

	t.Cleanup(func() {
		_ = bus.Close()
	})

	received := make(chan *events.ModelPublished, 1)

	err := bus.Handle(events.ModelPublishedEvent, func(_ context.Context, event any) error {
		published, ok := event.(*events.ModelPublished)
		if ok {
			received <- published
		}

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, bus.Subscribe(ctx))

	err = bus.Publish(ctx, "model-1", events.ModelPublished{
		BaseEvent: events.BaseEvent{
			ID:        bus.GenerateID(),
			Type:      events.ModelPublishedEvent,
			Timestamp: time.Now().UTC(),
			ModelID:   "model-1",
		},
		Version: "1.0.0",
	})
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, "model-1", got.ModelID)
		assert.Equal(t, "1.0.0", got.Version)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestGoChannelEventBus_UnhandledTypeIsIgnored(t *testing.T) {
	bus := NewGoChannelEventBus(slog.Default())

	t.Cleanup(func() {
		_ = bus.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for archived events; publish must still succeed.
	err := bus.Publish(ctx, "model-2", events.ModelArchived{
		BaseEvent: events.BaseEvent{ID: bus.GenerateID(), ModelID: "model-2"},
	})
	assert.NoError(t, err)
}
