package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ayo6706/ledger-engine/internal/observability"
	"github.com/ayo6706/ledger-engine/internal/service"
	"go.uber.org/zap"
)

// PayoutWorker drains pending payouts in the background. It polls at a fixed
// interval and settles claimed batches through the payout service. Multiple
// instances are safe; claiming uses FOR UPDATE SKIP LOCKED.
type PayoutWorker struct {
	svc          *service.PayoutService
	pollInterval time.Duration
	batchSize    int
	stopCh       chan struct{}
	stopOnce     sync.Once
}

func NewPayoutWorker(svc *service.PayoutService) *PayoutWorker {
	return &PayoutWorker{
		svc:          svc,
		pollInterval: 10 * time.Second,
		batchSize:    10,
		stopCh:       make(chan struct{}),
	}
}

// WithPollInterval updates the poll interval.
func (w *PayoutWorker) WithPollInterval(interval time.Duration) *PayoutWorker {
	if interval > 0 {
		w.pollInterval = interval
	}
	return w
}

// WithBatchSize updates the claim batch size.
func (w *PayoutWorker) WithBatchSize(size int) *PayoutWorker {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// Start blocks and polls until Stop is called or the context is canceled.
func (w *PayoutWorker) Start(ctx context.Context) {
	zap.L().Info("payout worker starting",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_size", w.batchSize))

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("payout worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("payout worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *PayoutWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *PayoutWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// ProcessOnce settles a single batch immediately, outside the poll loop.
func (w *PayoutWorker) ProcessOnce(ctx context.Context) (int, error) {
	return w.svc.ProcessBatch(ctx, w.batchSize)
}

func (w *PayoutWorker) runOnce(ctx context.Context) {
	claimed, err := w.svc.ProcessBatch(ctx, w.batchSize)
	if err != nil {
		observability.IncrementWorkerRun("payout", "failed")
		zap.L().Error("payout batch failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("payout", "success")
	if claimed > 0 {
		zap.L().Info("payout batch settled", zap.Int("claimed", claimed))
	}
}
