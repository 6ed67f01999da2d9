// Package breaker guards a venue repository with a circuit breaker so a
// failing store is answered fast instead of piling up timed-out requests.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"venues-server/apperrors"
	"venues-server/config"
	"venues-server/logging"
	"venues-server/metrics"
	"venues-server/models/stats"
	"venues-server/models/venue"
	"venues-server/query"
	services "venues-server/service"
)

// BreakerVenueRepository wraps another repository. Only store failures
// count against the breaker; not-found, validation and conflict outcomes are
// answers, not outages.
type BreakerVenueRepository struct {
	repo    services.VenueRepository
	cb      *gobreaker.CircuitBreaker[interface{}]
	backend string
	logger  zerolog.Logger
}

func NewBreakerVenueRepository(repo services.VenueRepository, backend string, cfg config.BreakerConfig) *BreakerVenueRepository {
	logger := logging.Component("store_breaker")
	metrics.StoreBreakerState.WithLabelValues(backend).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        backend,
		MaxRequests: 1,
		Interval:    cfg.Window,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("backend", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker state change")
			metrics.StoreBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || !apperrors.IsType(err, apperrors.ErrorTypeStore)
		},
	})

	return &BreakerVenueRepository{repo: repo, cb: cb, backend: backend, logger: logger}
}

func (b *BreakerVenueRepository) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.StoreBreakerRejections.WithLabelValues(b.backend).Inc()
		return nil, apperrors.NewStoreError("venue store unavailable", err)
	}
	return result, err
}

// castResult type-checks what the breaker hands back.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func (b *BreakerVenueRepository) FindVenues(ctx context.Context, plan query.Plan) ([]venue.Venue, error) {
	return castResult[[]venue.Venue](b.execute(func() (interface{}, error) {
		return b.repo.FindVenues(ctx, plan)
	}))
}

func (b *BreakerVenueRepository) CountVenues(ctx context.Context, plan query.Plan) (int64, error) {
	return castResult[int64](b.execute(func() (interface{}, error) {
		return b.repo.CountVenues(ctx, plan)
	}))
}

func (b *BreakerVenueRepository) GetVenue(ctx context.Context, id string) (*venue.Venue, error) {
	return castResult[*venue.Venue](b.execute(func() (interface{}, error) {
		return b.repo.GetVenue(ctx, id)
	}))
}

func (b *BreakerVenueRepository) InsertVenue(ctx context.Context, v *venue.Venue) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.repo.InsertVenue(ctx, v)
	})
	return err
}

func (b *BreakerVenueRepository) ReplaceVenue(ctx context.Context, v *venue.Venue) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.repo.ReplaceVenue(ctx, v)
	})
	return err
}

func (b *BreakerVenueRepository) DeleteVenue(ctx context.Context, id string) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.repo.DeleteVenue(ctx, id)
	})
	return err
}

func (b *BreakerVenueRepository) CategoryStats(ctx context.Context, since time.Time) (*stats.Dashboard, error) {
	return castResult[*stats.Dashboard](b.execute(func() (interface{}, error) {
		return b.repo.CategoryStats(ctx, since)
	}))
}

// State reports the current breaker state.
func (b *BreakerVenueRepository) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
