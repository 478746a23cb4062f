package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/swift-remit/internal/observability"
	"go.uber.org/zap"
)

// OutcomePoller records settlement outcomes reported by the network.
type OutcomePoller interface {
	PollOutcomes(ctx context.Context, pageSize int) (int, error)
}

// SettlementWorker polls the settlement network for outcomes of submitted transactions.
// Concurrent instances are safe: outcome recording is a status-guarded write, so a
// transaction settled by another instance is skipped.
type SettlementWorker struct {
	poller    OutcomePoller
	batchSize int
	loop      *loop
}

func NewSettlementWorker(poller OutcomePoller) *SettlementWorker {
	return &SettlementWorker{
		poller:    poller,
		batchSize: 100,
		loop:      newLoop("settlement", 15*time.Second, false),
	}
}

// WithPollInterval sets how often the network is polled.
func (w *SettlementWorker) WithPollInterval(interval time.Duration) *SettlementWorker {
	w.loop.setInterval(interval)
	return w
}

// WithBatchSize sets the page size used to load awaiting transactions.
func (w *SettlementWorker) WithBatchSize(size int) *SettlementWorker {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// Start blocks until Stop is called or ctx is canceled.
func (w *SettlementWorker) Start(ctx context.Context) {
	w.loop.run(ctx, w.tick)
}

func (w *SettlementWorker) Stop() {
	w.loop.stop()
}

// Run starts the worker in a goroutine and returns its stop function.
func (w *SettlementWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// ProcessOnce polls a single page of outcomes.
func (w *SettlementWorker) ProcessOnce(ctx context.Context) (int, error) {
	return w.poller.PollOutcomes(ctx, w.batchSize)
}

func (w *SettlementWorker) tick(ctx context.Context) {
	recorded, err := w.ProcessOnce(ctx)
	if err != nil {
		observability.IncrementWorkerRun("settlement", "failed")
		zap.L().Error("settlement poll failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("settlement", "success")
	if recorded > 0 {
		zap.L().Info("settlement outcomes recorded", zap.Int("count", recorded))
	}
}

func (w *SettlementWorker) String() string {
	return fmt.Sprintf("SettlementWorker(interval=%v, batch=%d)", w.loop.interval, w.batchSize)
}
