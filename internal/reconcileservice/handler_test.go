package reconcileservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
)

func newTestService(mc common.MessageConsumer, r Rebuilder) (*ReconcileService, *fakeRecorder) {
	rec := &fakeRecorder{}
	s := NewReconcileService(mc, r, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.baseDelay = time.Millisecond
	return s, rec
}

func delivery(t *testing.T, key common.BindingKey, event any, ack amqp.Acknowledger) amqp.Delivery {
	t.Helper()

	body, err := json.Marshal(event)
	require.NoError(t, err)

	return amqp.Delivery{Acknowledger: ack, RoutingKey: string(key), Body: body}
}

// runWith feeds msgs to a service and returns once they are all handled.
func runWith(t *testing.T, s *ReconcileService, mc *MockMessageConsumer, msgs ...amqp.Delivery) {
	t.Helper()

	ch := make(chan amqp.Delivery, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)

	mc.On("Consume", common.OwnedBlogsQueue, ConsumerName).Return(ch, nil)

	require.NoError(t, s.Run())
	mc.AssertExpectations(t)
}

func TestRun(t *testing.T) {
	userID := uuid.New()
	blogID := uuid.New()

	testCases := []struct {
		name       string
		body       any
		setup      func(r *MockRebuilder)
		wantResult []string
	}{
		{
			name: "rebuilds the owner",
			body: common.BlogEvent{BlogID: blogID, UserID: &userID},
			setup: func(r *MockRebuilder) {
				r.On("RebuildOwnedBlogs", userID).Return(nil).Once()
			},
			wantResult: []string{resultOK},
		},
		{
			name: "retries transient failures",
			body: common.BlogEvent{BlogID: blogID, UserID: &userID},
			setup: func(r *MockRebuilder) {
				r.On("RebuildOwnedBlogs", userID).Return(errors.New("connection reset")).Twice()
				r.On("RebuildOwnedBlogs", userID).Return(nil).Once()
			},
			wantResult: []string{resultOK},
		},
		{
			name: "gives up after the last attempt",
			body: common.BlogEvent{BlogID: blogID, UserID: &userID},
			setup: func(r *MockRebuilder) {
				r.On("RebuildOwnedBlogs", userID).Return(errors.New("connection reset")).Times(defaultMaxRetries)
			},
			wantResult: []string{resultFailed},
		},
		{
			name: "owner gone",
			body: common.BlogEvent{BlogID: blogID, UserID: &userID},
			setup: func(r *MockRebuilder) {
				r.On("RebuildOwnedBlogs", userID).Return(blogservice.ErrOwnerNotFound).Once()
			},
			wantResult: []string{resultSkipped},
		},
		{
			name:  "ownerless blog",
			body:  common.BlogEvent{BlogID: blogID},
			setup: func(r *MockRebuilder) {},
		},
		{
			name:  "malformed body",
			body:  "not an event",
			setup: func(r *MockRebuilder) {},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mc := new(MockMessageConsumer)
			r := new(MockRebuilder)
			tc.setup(r)

			s, rec := newTestService(mc, r)
			ack := &fakeAcknowledger{}

			runWith(t, s, mc, delivery(t, common.BlogCreatedKey, tc.body, ack))

			r.AssertExpectations(t)
			assert.Equal(t, 1, ack.count())
			assert.Equal(t, tc.wantResult, rec.results())
		})
	}
}

func TestRun_ConsumeError(t *testing.T) {
	mc := new(MockMessageConsumer)
	mc.On("Consume", common.OwnedBlogsQueue, ConsumerName).Return(nil, errors.New("channel closed"))

	s, _ := newTestService(mc, new(MockRebuilder))

	assert.EqualError(t, s.Run(), "channel closed")
}

func TestClose(t *testing.T) {
	mc := new(MockMessageConsumer)
	ch := make(chan amqp.Delivery)
	mc.On("Consume", common.OwnedBlogsQueue, ConsumerName).Return(ch, nil)

	s, _ := newTestService(mc, new(MockRebuilder))

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	s.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestRun_Broker(t *testing.T) {
	url := common.TestRabbitMQ(t)

	mb, err := common.NewMessageBroker(url)
	require.NoError(t, err)
	t.Cleanup(func() { mb.Close() })

	require.NoError(t, common.SetupEventExchange(mb))

	userID := uuid.New()
	done := make(chan struct{})

	r := new(MockRebuilder)
	r.On("RebuildOwnedBlogs", userID).Return(nil).Once().Run(func(mock.Arguments) { close(done) })

	s, rec := newTestService(mb, r)
	go s.Run()
	t.Cleanup(s.Close)

	body, err := json.Marshal(common.BlogEvent{BlogID: uuid.New(), UserID: &userID})
	require.NoError(t, err)
	require.NoError(t, mb.Publish(context.Background(), body, common.BlogDeletedKey, common.EventExchange))

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("rebuild was not triggered")
	}

	assert.Eventually(t, func() bool { return len(rec.results()) == 1 }, 5*time.Second, 10*time.Millisecond)
}
