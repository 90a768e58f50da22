package httpserver

import (
	"context"
	"log/slog"
	"time"
)

// staleTempAge is how old a leftover temporary file must be before removal.
const staleTempAge = time.Minute

// TempSweeper is implemented by stores that can leave temporary files behind
// after an interrupted write.
type TempSweeper interface {
	SweepTemp(ctx context.Context, cutoff time.Time) (int, error)
}

// StartJanitor launches a background janitor that removes stale temporary files.
func StartJanitor(ctx context.Context, sweeper TempSweeper, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cleanOnce(ctx, sweeper, time.Now(), logger)
			}
		}
	}()
}

func cleanOnce(ctx context.Context, sweeper TempSweeper, now time.Time, logger *slog.Logger) int {
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	removed, err := sweeper.SweepTemp(c, now.Add(-staleTempAge))
	if err != nil {
		if logger != nil {
			logger.Error("janitor error", "error", err)
		}
		return removed
	}
	if removed > 0 && logger != nil {
		logger.Info("janitor removed stale temp files", "count", removed)
	}
	return removed
}
