package reconcile

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically re-attempts registration for pending records. It runs
// until its context is cancelled, typically inside the server's errgroup.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(service *Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{service: service, interval: interval, logger: logger}
}

// Run blocks, sweeping on every tick. Returns nil on context cancellation.
func (w *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			recovered, err := w.service.Repair(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.ErrorContext(ctx, "repair sweep failed", "error", err)
				continue
			}
			if recovered > 0 {
				w.logger.InfoContext(ctx, "repair sweep recovered pending records",
					"recovered", recovered)
			}
		}
	}
}
