package core

// scheduler.go runs the import history retention job. It purges runs older
// than the retention window once at start and then every CheckInterval
// until ctx is cancelled. A failed cycle is logged and retried on the next
// tick.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig holds the history retention policy.
type RetentionConfig struct {
	RetentionDays int           // Days of history to keep (default: 180)
	CheckInterval time.Duration // How often to purge (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 180
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartRetentionScheduler blocks until ctx is cancelled; run it in its own
// goroutine.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("history retention scheduler started",
		"retention_days", cfg.RetentionDays,
		"check_interval", cfg.CheckInterval,
	)

	s.runRetentionJob(ctx, cfg, time.Now())

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history retention scheduler stopped")
			return
		case now := <-ticker.C:
			s.runRetentionJob(ctx, cfg, now)
		}
	}
}

// runRetentionJob performs one purge cycle and returns the number of runs removed.
func (s *Service) runRetentionJob(ctx context.Context, cfg RetentionConfig, now time.Time) int64 {
	start := time.Now()
	cutoff := now.AddDate(0, 0, -cfg.RetentionDays)

	purged, err := s.PurgeHistory(ctx, cutoff)
	if err != nil {
		slog.Error("history purge failed", "error", err)
		return 0
	}
	slog.Info("purged import history",
		"runs_purged", purged,
		"cutoff", cutoff.Format(time.DateOnly),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return purged
}
