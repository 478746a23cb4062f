package worker

import (
	"context"
	"time"

	"github.com/ayo6706/swift-remit/internal/observability"
	"github.com/ayo6706/swift-remit/internal/service"
	"go.uber.org/zap"
)

// Reconciler checks stored transactions against lifecycle invariants.
type Reconciler interface {
	Run(ctx context.Context) ([]service.IntegrityViolation, error)
}

// ReconciliationWorker runs the lifecycle integrity checks at startup and then hourly
// unless configured otherwise.
type ReconciliationWorker struct {
	svc  Reconciler
	loop *loop
}

func NewReconciliationWorker(svc Reconciler) *ReconciliationWorker {
	return &ReconciliationWorker{svc: svc, loop: newLoop("reconciliation", time.Hour, true)}
}

func (w *ReconciliationWorker) WithInterval(interval time.Duration) *ReconciliationWorker {
	w.loop.setInterval(interval)
	return w
}

func (w *ReconciliationWorker) Start(ctx context.Context) {
	w.loop.run(ctx, func(ctx context.Context) { _, _ = w.ProcessOnce(ctx) })
}

func (w *ReconciliationWorker) Stop() {
	w.loop.stop()
}

func (w *ReconciliationWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// ProcessOnce runs every check once and logs violations grouped by check name.
func (w *ReconciliationWorker) ProcessOnce(ctx context.Context) ([]service.IntegrityViolation, error) {
	violations, err := w.svc.Run(ctx)
	if err != nil {
		observability.IncrementWorkerRun("reconciliation", "failed")
		zap.L().Error("reconciliation run failed", zap.Error(err))
		return nil, err
	}
	if len(violations) == 0 {
		observability.IncrementWorkerRun("reconciliation", "success")
		return nil, nil
	}

	observability.IncrementWorkerRun("reconciliation", "violations")
	byCheck := make(map[string]int)
	for _, v := range violations {
		byCheck[v.Check]++
	}
	for check, n := range byCheck {
		zap.L().Warn("lifecycle integrity violations", zap.String("check", check), zap.Int("count", n))
	}
	return violations, nil
}
