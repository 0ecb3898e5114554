package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"threelance.backend/pkg/logger"
)

const (
	defaultWatchInterval = 30 * time.Second
	defaultBatchSize     = 100
)

// PendingReconciler settles pending transactions whose receipts exist.
type PendingReconciler interface {
	ReconcilePending(ctx context.Context, limit int) (int, error)
}

// ReceiptWatcher periodically settles PENDING transactions from receipts.
type ReceiptWatcher struct {
	reconciler PendingReconciler
	interval   time.Duration
	batchSize  int
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewReceiptWatcher(reconciler PendingReconciler, interval time.Duration) *ReceiptWatcher {
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	return &ReceiptWatcher{
		reconciler: reconciler,
		interval:   interval,
		batchSize:  defaultBatchSize,
		stop:       make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (j *ReceiptWatcher) Start(ctx context.Context) {
	logger.Info(ctx, "Starting receipt watcher", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Receipt watcher stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Receipt watcher stopped")
			return
		case <-ticker.C:
			j.processPending(ctx)
		}
	}
}

func (j *ReceiptWatcher) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

func (j *ReceiptWatcher) processPending(ctx context.Context) {
	settled, err := j.reconciler.ReconcilePending(ctx, j.batchSize)
	if err != nil {
		logger.Error(ctx, "Error fetching pending transactions", zap.Error(err))
		return
	}
	if settled > 0 {
		logger.Info(ctx, "Settled pending transactions", zap.Int("count", settled))
	}
}
