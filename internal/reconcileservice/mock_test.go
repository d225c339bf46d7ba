package reconcileservice

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
	"github.com/sushihentaime/bloglist/internal/common"
)

type MockMessageConsumer struct {
	mock.Mock
}

func (m *MockMessageConsumer) Consume(queue common.Queue, consumer string) (<-chan amqp.Delivery, error) {
	args := m.Called(queue, consumer)
	msgs, _ := args.Get(0).(chan amqp.Delivery)
	return msgs, args.Error(1)
}

type MockRebuilder struct {
	mock.Mock
}

func (m *MockRebuilder) RebuildOwnedBlogs(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(userID)
	return args.Error(0)
}

// fakeAcknowledger counts acks for the delivery it is attached to.
type fakeAcknowledger struct {
	mu   sync.Mutex
	acks int
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error { return nil }

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error { return nil }

func (a *fakeAcknowledger) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acks
}

type fakeRecorder struct {
	mu       sync.Mutex
	rebuilds []string
}

func (r *fakeRecorder) RecordRequest(string, int, time.Duration) {}

func (r *fakeRecorder) RecordAuthFailure(string) {}

func (r *fakeRecorder) RecordRebuild(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rebuilds = append(r.rebuilds, result)
}

func (r *fakeRecorder) results() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.rebuilds...)
}
