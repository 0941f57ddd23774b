package api

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// sweepable is a cache whose expired entries can be dropped in bulk.
type sweepable interface {
	Name() string
	Sweep() int
	Len() int
}

// sizeRecorder receives the live entry count of a cache after a sweep.
type sizeRecorder func(cache string, entries int)

// sweepCaches drops expired entries from every cache and reports what is left.
func sweepCaches(ctx context.Context, logger *slog.Logger, record sizeRecorder, caches ...sweepable) {
	for _, c := range caches {
		removed := c.Sweep()
		live := c.Len()
		if record != nil {
			record(c.Name(), live)
		}
		logger.LogAttrs(ctx, slog.LevelDebug, "cache swept",
			slog.String("cache", c.Name()),
			slog.Int("removed", removed),
			slog.Int("live", live))
	}
}

// scheduleSweeps starts a cron runner that sweeps the caches on schedule.
// The caller stops the returned runner on shutdown.
func scheduleSweeps(schedule string, logger *slog.Logger, record sizeRecorder, caches ...sweepable) (*cron.Cron, error) {
	runner := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger)))
	_, err := runner.AddFunc(schedule, func() {
		sweepCaches(context.Background(), logger, record, caches...)
	})
	if err != nil {
		return nil, err
	}
	runner.Start()
	return runner, nil
}
