package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"venues-server/logging"
	"venues-server/metrics"
	"venues-server/models/stats"
)

// StatsSource computes dashboard aggregates.
type StatsSource interface {
	CategoryStats(ctx context.Context, since time.Time) (*stats.Dashboard, error)
}

// VenueStatsRefresherService keeps an in-memory dashboard snapshot, rebuilt
// on a ticker and on demand after it has been invalidated.
type VenueStatsRefresherService struct {
	source       StatsSource
	recentWindow time.Duration
	interval     time.Duration
	now          func() time.Time
	logger       zerolog.Logger

	mu       sync.RWMutex
	snapshot *stats.Dashboard
	// generation is bumped by Invalidate; a refresh that started under an
	// older generation does not publish its result.
	generation uint64
}

// NewVenueStatsRefresherService counts venues created within recentWindow
// as recent and refreshes every interval while served.
func NewVenueStatsRefresherService(source StatsSource, recentWindow, interval time.Duration) *VenueStatsRefresherService {
	return &VenueStatsRefresherService{
		source:       source,
		recentWindow: recentWindow,
		interval:     interval,
		now:          time.Now,
		logger:       logging.Component("stats_refresher"),
	}
}

// Serve refreshes once and then on every tick until ctx is done. A failed
// refresh is logged and keeps the previous snapshot.
func (sr *VenueStatsRefresherService) Serve(ctx context.Context) error {
	if _, err := sr.Refresh(ctx); err != nil {
		sr.logger.Warn().Err(err).Msg("Initial stats refresh failed")
	}

	ticker := time.NewTicker(sr.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sr.logger.Info().Msg("Stats refresher stopped")
			return nil
		case <-ticker.C:
			if _, err := sr.Refresh(ctx); err != nil {
				sr.logger.Error().Err(err).Msg("Periodic stats refresh failed")
			}
		}
	}
}

func (sr *VenueStatsRefresherService) String() string {
	return "stats-refresher"
}

// Refresh recomputes the snapshot. On failure the previous snapshot is kept.
// If the venue set changed while the aggregate was running, the result is
// returned but not cached.
func (sr *VenueStatsRefresherService) Refresh(ctx context.Context) (*stats.Dashboard, error) {
	start := time.Now()
	now := sr.now().UTC()

	sr.mu.RLock()
	generation := sr.generation
	sr.mu.RUnlock()

	dashboard, err := sr.source.CategoryStats(ctx, now.Add(-sr.recentWindow))
	if err != nil {
		return nil, err
	}
	dashboard.GeneratedAt = now

	sr.mu.Lock()
	current := sr.generation == generation
	if current {
		sr.snapshot = dashboard
	}
	sr.mu.Unlock()

	if !current {
		sr.logger.Debug().Msg("Venues changed during stats refresh, snapshot not cached")
		return dashboard, nil
	}

	metrics.StatsRefreshDuration.Observe(time.Since(start).Seconds())
	metrics.StatsLastRefresh.Set(float64(now.Unix()))
	sr.logger.Debug().
		Int64("total", dashboard.TotalVenues).
		Int("categories", len(dashboard.Stats)).
		Msg("Stats refreshed")
	return dashboard, nil
}

// Snapshot returns the current snapshot, computing it first if there is
// none.
func (sr *VenueStatsRefresherService) Snapshot(ctx context.Context) (*stats.Dashboard, error) {
	sr.mu.RLock()
	snapshot := sr.snapshot
	sr.mu.RUnlock()

	if snapshot != nil {
		return snapshot, nil
	}
	return sr.Refresh(ctx)
}

// Invalidate drops the snapshot so the next Snapshot recomputes it.
func (sr *VenueStatsRefresherService) Invalidate() {
	sr.mu.Lock()
	sr.snapshot = nil
	sr.generation++
	sr.mu.Unlock()
}
