package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venues-server/apperrors"
	"venues-server/config"
	redisdao "venues-server/dao/redis"
	"venues-server/db"
	"venues-server/models/venue"
	"venues-server/query"
)

func newTestRepository(t *testing.T) (*BreakerVenueRepository, *db.MockRedisClient) {
	t.Helper()
	client := db.NewMockRedisClient()
	repo := NewBreakerVenueRepository(redisdao.NewRedisVenueDAO(client), "redis", config.BreakerConfig{
		Enabled:      true,
		MinRequests:  2,
		FailureRatio: 0.5,
		Window:       time.Minute,
		OpenTimeout:  time.Minute,
	})
	return repo, client
}

func TestBreakerVenueRepository_PassesThrough(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	v := &venue.Venue{
		Name:     "Blue Bar",
		Category: venue.CategorySet{venue.CategoryBars},
		Address:  "1 Main St",
		Location: venue.NewPoint(-74.0060, 40.7128),
	}
	require.NoError(t, repo.InsertVenue(ctx, v))

	got, err := repo.GetVenue(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blue Bar", got.Name)

	items, err := repo.FindVenues(ctx, query.Plan{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	total, err := repo.CountVenues(ctx, query.Plan{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	dashboard, err := repo.CategoryStats(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), dashboard.TotalVenues)

	require.NoError(t, repo.DeleteVenue(ctx, v.ID))
}

func TestBreakerVenueRepository_NotFoundDoesNotTrip(t *testing.T) {
	repo, _ := newTestRepository(t)

	for i := 0; i < 5; i++ {
		_, err := repo.GetVenue(context.Background(), "missing")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	}
	assert.Equal(t, gobreaker.StateClosed, repo.State())
}

func TestBreakerVenueRepository_OpensOnStoreFailures(t *testing.T) {
	repo, client := newTestRepository(t)
	client.FailWith = errors.New("connection refused")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := repo.FindVenues(ctx, query.Plan{Limit: 10})
		require.Error(t, err)
		assert.ErrorIs(t, err, client.FailWith)
	}
	assert.Equal(t, gobreaker.StateOpen, repo.State())

	client.FailWith = nil
	_, err := repo.CountVenues(ctx, query.Plan{})
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStore))
}
