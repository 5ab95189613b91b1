package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	for _, id := range []string{"r-1", "r-2"} {
		msg, err := NewMessage("face_verify", map[string]string{"record_id": id})
		require.NoError(t, err)
		require.NoError(t, q.Publish(ctx, msg))
	}

	out, err := q.Consume(ctx)
	require.NoError(t, err)
	for _, want := range []string{"r-1", "r-2"} {
		select {
		case msg := <-out:
			var body map[string]string
			require.NoError(t, msg.Decode(&body))
			assert.Equal(t, "face_verify", msg.Type)
			assert.Equal(t, want, body["record_id"])
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
}

func TestInMemoryPublishHonoursContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{Type: "a"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "b"}), context.Canceled)
}

func TestConsumeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	out, err := NewInMemory(1).Consume(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, open := <-out:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}
