package api

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/adapters/memory"
)

func TestSweepCaches(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := memory.NewResponseCache[string]("details", 0)
	cache.WithClock(func() time.Time { return now })
	cache.Set("a", "1", time.Minute)
	cache.Set("b", "2", time.Hour)

	now = now.Add(2 * time.Minute)
	sizes := map[string]int{}
	sweepCaches(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)),
		func(name string, n int) { sizes[name] = n }, cache)

	require.Equal(t, map[string]int{"details": 1}, sizes)
	require.Equal(t, 1, cache.Len())
}

func TestScheduleSweeps_RejectsBadSchedule(t *testing.T) {
	_, err := scheduleSweeps("whenever", slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	require.Error(t, err)

	runner, err := scheduleSweeps("@every 1h", slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	require.NoError(t, err)
	require.Len(t, runner.Entries(), 1)
	<-runner.Stop().Done()
}
