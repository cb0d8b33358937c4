package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{}

func (failingSink) Append(context.Context, Event) error {
	return errors.New("sink down")
}

func TestPublisherEmit(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(slog.Default(), store, nil, failingSink{})

	pub.Emit(context.Background(), Event{
		Type:        EventTamperDetected,
		ContentHash: "abc123",
		RecordID:    "rec-1",
	})

	events, err := store.ListByHash(context.Background(), "abc123")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventTamperDetected, events[0].Type)
	assert.False(t, events[0].Timestamp.IsZero(), "publisher should stamp the timestamp")
}

func TestPublisherPreservesTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(slog.Default(), store)

	evt := Event{Type: EventKindConflict, ContentHash: "def456"}
	pub.Emit(context.Background(), evt)
	all := store.All()
	require.Len(t, all, 1)

	// Re-emitting a stamped event must not change its timestamp.
	pub.Emit(context.Background(), all[0])
	assert.Equal(t, all[0].Timestamp, store.All()[1].Timestamp)
}
