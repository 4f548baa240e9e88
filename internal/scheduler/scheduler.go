package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"referral-engine/internal/logging"
)

type Task func(ctx context.Context) error

// Every runs task immediately and then on each tick until ctx is done.
// Runs never overlap; a slow run delays the next tick. Task errors are logged.
func Every(ctx context.Context, interval time.Duration, name string, task Task, log *zap.Logger) {
	log = logging.OrNop(log).With(zap.String("task", name))

	run := func() {
		if err := task(ctx); err != nil {
			log.Warn("scheduled task failed", zap.Error(err))
		}
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
