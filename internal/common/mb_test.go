package common

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBroker_PublishConsume(t *testing.T) {
	mb, err := NewMessageBroker(TestRabbitMQ(t))
	require.NoError(t, err)
	t.Cleanup(func() { mb.Close() })

	require.NoError(t, SetupEventExchange(mb))

	msgs, err := mb.Consume(OwnedBlogsQueue, "test")
	require.NoError(t, err)

	owner := uuid.New()
	event := BlogEvent{BlogID: uuid.New(), UserID: &owner}
	body, err := json.Marshal(event)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// user.* is not bound to the reconcile queue and must not arrive
	require.NoError(t, mb.Publish(ctx, []byte(`{}`), UserCreatedKey, EventExchange))
	require.NoError(t, mb.Publish(ctx, body, BlogDeletedKey, EventExchange))

	select {
	case msg := <-msgs:
		assert.Equal(t, string(BlogDeletedKey), msg.RoutingKey)

		var got BlogEvent
		require.NoError(t, json.Unmarshal(msg.Body, &got))
		assert.Equal(t, event.BlogID, got.BlogID)
		assert.Equal(t, owner, *got.UserID)
		assert.NoError(t, msg.Ack(false))
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestNoopProducer(t *testing.T) {
	var p MessageProducer = NoopProducer{}
	assert.NoError(t, p.Publish(context.Background(), []byte("x"), BlogCreatedKey, EventExchange))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, []byte("x"), BlogCreatedKey, EventExchange), context.Canceled)
}
