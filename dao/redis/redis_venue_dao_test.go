package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venues-server/apperrors"
	"venues-server/db"
	"venues-server/models/venue"
	"venues-server/query"
)

const centerLon, centerLat = -73.5673, 45.5017

func newTestDAO(t *testing.T) (*RedisVenueDAO, *db.MockRedisClient) {
	t.Helper()
	mockClient := db.NewMockRedisClient()
	dao := NewRedisVenueDAO(mockClient)
	dao.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return dao, mockClient
}

func rating(r float64) *float64 { return &r }

func testVenue(id, name string, latOffset float64, cats ...venue.Category) *venue.Venue {
	return &venue.Venue{
		ID:       id,
		Name:     name,
		Category: venue.CategorySet(cats),
		Location: venue.NewPoint(centerLon, centerLat+latOffset),
		Address:  name + " street",
	}
}

func TestRedisVenueDAO_InsertAndGet(t *testing.T) {
	dao, mockClient := newTestDAO(t)
	ctx := context.Background()

	v := testVenue("", "Test Venue", 0, venue.CategoryBars)
	require.NoError(t, dao.InsertVenue(ctx, v))
	require.NotEmpty(t, v.ID)
	assert.Equal(t, dao.now().UTC(), v.CreatedAt)

	stored, err := mockClient.Get(ctx, "venue_v2:"+v.ID)
	require.NoError(t, err)
	assert.Contains(t, stored, `"name":"Test Venue"`)

	got, err := dao.GetVenue(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Venue", got.Name)
	assert.Equal(t, venue.CategorySet{venue.CategoryBars}, got.Category)
	assert.Nil(t, got.Distance)
}

func TestRedisVenueDAO_InsertDuplicateID(t *testing.T) {
	dao, _ := newTestDAO(t)
	ctx := context.Background()

	require.NoError(t, dao.InsertVenue(ctx, testVenue("v1", "A", 0, venue.CategoryBars)))
	err := dao.InsertVenue(ctx, testVenue("v1", "B", 0, venue.CategoryBars))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestRedisVenueDAO_GetMissing(t *testing.T) {
	dao, _ := newTestDAO(t)

	_, err := dao.GetVenue(context.Background(), "nope")
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrorTypeNotFound, appErr.Type)
	assert.Equal(t, "Venue not found", appErr.Message)
}

func TestRedisVenueDAO_ReplaceMovesCategoryIndexes(t *testing.T) {
	dao, _ := newTestDAO(t)
	ctx := context.Background()

	v := testVenue("v1", "Alpha", 0.0009, venue.CategoryBars)
	require.NoError(t, dao.InsertVenue(ctx, v))
	created := v.CreatedAt

	dao.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	updated := testVenue("v1", "Alpha Club", 0.0009, venue.CategoryClubs)
	require.NoError(t, dao.ReplaceVenue(ctx, updated))
	assert.Equal(t, created, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created))

	near := &query.GeoNear{Center: venue.NewPoint(centerLon, centerLat), MaxDistanceMeters: 1000}

	bars, err := dao.FindVenues(ctx, query.Plan{Near: near, Filter: query.Filter{Category: venue.CategoryBars}})
	require.NoError(t, err)
	assert.Empty(t, bars)

	clubs, err := dao.FindVenues(ctx, query.Plan{Near: near, Filter: query.Filter{Category: venue.CategoryClubs}})
	require.NoError(t, err)
	require.Len(t, clubs, 1)
	assert.Equal(t, "Alpha Club", clubs[0].Name)
	require.NotNil(t, clubs[0].Distance)
	assert.InDelta(t, 100, *clubs[0].Distance, 1)

	err = dao.ReplaceVenue(ctx, testVenue("missing", "X", 0, venue.CategoryBars))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestRedisVenueDAO_Delete(t *testing.T) {
	dao, _ := newTestDAO(t)
	ctx := context.Background()

	require.NoError(t, dao.InsertVenue(ctx, testVenue("v1", "A", 0, venue.CategoryBars)))
	require.NoError(t, dao.InsertVenue(ctx, testVenue("v2", "B", 0, venue.CategoryBars)))
	require.NoError(t, dao.DeleteVenue(ctx, "v1"))

	_, err := dao.GetVenue(ctx, "v1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	n, err := dao.CountVenues(ctx, query.Plan{Filter: query.Filter{Category: venue.CategoryBars}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.True(t, apperrors.IsType(dao.DeleteVenue(ctx, "v1"), apperrors.ErrorTypeNotFound))
}

func TestRedisVenueDAO_FindWithoutGeoKeepsInsertionOrder(t *testing.T) {
	dao, _ := newTestDAO(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, dao.InsertVenue(ctx, testVenue(id, "Venue "+id, 0, venue.CategoryShops)))
	}

	page, err := dao.FindVenues(ctx, query.Plan{Skip: 1, Limit: 5})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].ID)
	assert.Equal(t, "b", page[1].ID)
	assert.Nil(t, page[0].Distance)
}

func TestRedisVenueDAO_CategoryStats(t *testing.T) {
	dao, _ := newTestDAO(t)
	ctx := context.Background()

	a := testVenue("a", "A", 0, venue.CategoryBars, venue.CategoryClubs)
	a.Rating = rating(4)
	b := testVenue("b", "B", 0, venue.CategoryBars)
	b.Rating = rating(4.5)
	c := testVenue("c", "C", 0, venue.CategoryHotels)
	for _, v := range []*venue.Venue{a, b, c} {
		require.NoError(t, dao.InsertVenue(ctx, v))
	}

	dashboard, err := dao.CategoryStats(ctx, dao.now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), dashboard.TotalVenues)
	assert.Equal(t, int64(3), dashboard.RecentVenues)

	require.Len(t, dashboard.Stats, 3)
	assert.Equal(t, "bars", dashboard.Stats[0].Category)
	assert.Equal(t, int64(2), dashboard.Stats[0].Count)
	require.NotNil(t, dashboard.Stats[0].AvgRating)
	assert.Equal(t, 4.3, *dashboard.Stats[0].AvgRating)
	assert.Equal(t, "clubs", dashboard.Stats[1].Category)
	assert.Equal(t, "hotels", dashboard.Stats[2].Category)
	assert.Nil(t, dashboard.Stats[2].AvgRating)

	later, err := dao.CategoryStats(ctx, dao.now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), later.RecentVenues)
}

func TestRedisVenueDAO_StoreFailure(t *testing.T) {
	dao, mockClient := newTestDAO(t)
	mockClient.FailWith = assert.AnError

	_, err := dao.FindVenues(context.Background(), query.Plan{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStore))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRedisVenueDAO_RejectsPolarLatitude(t *testing.T) {
	dao, _ := newTestDAO(t)

	v := testVenue("", "Research Station", 0, venue.CategoryHotels)
	v.Location = venue.NewPoint(0, 89.5)
	err := dao.InsertVenue(context.Background(), v)
	require.Error(t, err)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	assert.Equal(t, "location", appErr.Field)
}
