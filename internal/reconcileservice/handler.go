package reconcileservice

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/metrics"
	"golang.org/x/exp/rand"
)

const (
	ConsumerName = "owned-blogs-reconciler"

	defaultMaxRetries = 5
	defaultBaseDelay  = 500 * time.Millisecond
)

// Rebuild results reported to the metrics recorder.
const (
	resultOK      = "ok"
	resultSkipped = "skipped"
	resultFailed  = "failed"
)

func NewReconcileService(mb common.MessageConsumer, r Rebuilder, rec metrics.Recorder, logger Logger) *ReconcileService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ReconcileService{
		mb:         mb,
		r:          r,
		rec:        rec,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
	}
}

// Run consumes the owned blogs queue until the delivery channel closes or
// Close is called.
func (s *ReconcileService) Run() error {
	msgs, err := s.mb.Consume(common.OwnedBlogsQueue, ConsumerName)
	if err != nil {
		return err
	}

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				s.logger.Info("delivery channel closed")
				return nil
			}
			s.handle(msg)

		case <-s.ctx.Done():
			s.logger.Info("stopping reconciler due to context cancellation")
			return nil
		}
	}
}

// handle always acks. A message that still fails after the last attempt
// is dropped; the next event for the same owner or a full rebuild repairs
// the list.
func (s *ReconcileService) handle(msg amqp.Delivery) {
	defer msg.Ack(false)

	var event common.BlogEvent
	err := json.Unmarshal(msg.Body, &event)
	if err != nil {
		s.logger.Error("could not unmarshal message", slog.String("routing_key", msg.RoutingKey), slog.String("error", err.Error()))
		return
	}

	if event.UserID == nil {
		return
	}
	userID := *event.UserID

	// using exponential backoff with jitter
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err = s.r.RebuildOwnedBlogs(s.ctx, userID)
		if err == nil {
			s.logger.Info("owned blogs rebuilt", slog.String("user_id", userID.String()), slog.String("routing_key", msg.RoutingKey))
			s.rec.RecordRebuild(resultOK)
			return
		}

		if errors.Is(err, blogservice.ErrOwnerNotFound) {
			s.logger.Info("owner no longer exists", slog.String("user_id", userID.String()))
			s.rec.RecordRebuild(resultSkipped)
			return
		}

		if attempt == s.maxRetries-1 {
			break
		}

		delay := time.Duration(rand.Int63n(int64(s.baseDelay) << uint(attempt)))
		s.logger.Info("delaying owned blogs rebuild", slog.String("user_id", userID.String()), slog.Int("attempt", attempt), slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			s.rec.RecordRebuild(resultFailed)
			return
		}
	}

	s.logger.Error("could not rebuild owned blogs", slog.String("user_id", userID.String()), slog.String("error", err.Error()))
	s.rec.RecordRebuild(resultFailed)
}

func (s *ReconcileService) Close() {
	s.cancel()
}
