package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// loop drives a tick function on a fixed interval until stopped or ctx ends.
type loop struct {
	name     string
	interval time.Duration
	eager    bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newLoop(name string, interval time.Duration, eager bool) *loop {
	return &loop{name: name, interval: interval, eager: eager, stopCh: make(chan struct{})}
}

func (l *loop) setInterval(d time.Duration) {
	if d > 0 {
		l.interval = d
	}
}

// run blocks. An eager loop ticks once before waiting for the first interval.
func (l *loop) run(ctx context.Context, tick func(context.Context)) {
	logger := zap.L().With(zap.String("worker", l.name))
	logger.Info("worker starting", zap.Duration("interval", l.interval))

	if l.eager {
		tick(ctx)
	}
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context canceled")
			return
		case <-l.stopCh:
			logger.Info("worker stopped")
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

func (l *loop) stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}
