package reconcileservice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/metrics"
)

// ReconcileService consumes blog events and rebuilds the affected owner's
// list of blogs.
type ReconcileService struct {
	mb         common.MessageConsumer
	r          Rebuilder
	rec        metrics.Recorder
	logger     Logger
	ctx        context.Context
	cancel     context.CancelFunc
	maxRetries int
	baseDelay  time.Duration
}

type Rebuilder interface {
	RebuildOwnedBlogs(ctx context.Context, userID uuid.UUID) error
}

type Logger interface {
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}
