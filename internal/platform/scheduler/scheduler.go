// Package scheduler runs jobs on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one scheduled unit of work. It must honour ctx.
type Job func(ctx context.Context)

// Run calls job once immediately and then on every tick of interval until ctx
// is cancelled. A tick never waits for the previous run: runs may overlap.
// Run returns only after every in-flight run has finished.
func Run(ctx context.Context, name string, interval time.Duration, job Job) {
	logger := slog.Default().With("component", "scheduler", "job", name)
	if interval <= 0 {
		logger.Info("job disabled", "interval", interval)
		return
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	spawn := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("job panicked", "panic", r)
				}
			}()
			job(ctx)
		}()
	}

	logger.Info("job scheduled", "interval", interval)
	spawn()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("job stopping; waiting for in-flight runs")
			return
		case <-ticker.C:
			spawn()
		}
	}
}
