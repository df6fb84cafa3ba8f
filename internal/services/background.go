package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"astra-backend/internal/notify"

	"go.uber.org/zap"
)

// Background runs fire-and-forget jobs (post-response persistence,
// title updates) detached from the request lifecycle. Each job gets
// its own timeout context; failures are logged and alerted but never
// surfaced to the request that queued them.
type Background struct {
	wg       sync.WaitGroup
	timeout  time.Duration
	logger   *zap.Logger
	notifier notify.Notifier
}

func NewBackground(timeout time.Duration, logger *zap.Logger, notifier notify.Notifier) *Background {
	return &Background{
		timeout:  timeout,
		logger:   logger,
		notifier: notifier,
	}
}

// Go queues fn as a named detached job.
func (b *Background) Go(name string, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			b.logger.Error("background job failed",
				zap.String("job", name),
				zap.Error(err))
			b.notifier.Alert(ctx, fmt.Sprintf("background job %q failed: %v", name, err))
		}
	}()
}

// Wait blocks until all queued jobs have finished. Called during
// graceful shutdown so queued persistence is not lost.
func (b *Background) Wait() {
	b.wg.Wait()
}
