package mongo

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"venues-server/models/venue"
	"venues-server/query"
)

func stageNames(p []bson.D) []string {
	names := make([]string, len(p))
	for i, stage := range p {
		names[i] = stage[0].Key
	}
	return names
}

func stageValue(t *testing.T, stage bson.D) bson.D {
	t.Helper()
	v, ok := stage[0].Value.(bson.D)
	require.True(t, ok, "stage %s is not a document", stage[0].Key)
	return v
}

func lookup(d bson.D, key string) (interface{}, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func TestFindPipeline_GeoWithPushdown(t *testing.T) {
	plan := query.Plan{
		Near: &query.GeoNear{Center: venue.NewPoint(-73.5, 45.5), MaxDistanceMeters: 500},
		Filter: query.Filter{
			Category: venue.CategoryBars,
			Search:   "a.b",
			OpenNow:  &query.OpenAt{Day: time.Monday, Clock: 23 * 60},
		},
		Skip:  20,
		Limit: 10,
	}

	p := FindPipeline(plan)
	assert.Equal(t, []string{"$geoNear", "$match", "$sort", "$skip", "$limit"}, stageNames(p))

	geoNear := stageValue(t, p[0])
	near, _ := lookup(geoNear, "near")
	assert.Equal(t, bson.D{{Key: "type", Value: "Point"}, {Key: "coordinates", Value: bson.A{-73.5, 45.5}}}, near)
	field, _ := lookup(geoNear, "distanceField")
	assert.Equal(t, DistanceField, field)
	maxDistance, _ := lookup(geoNear, "maxDistance")
	assert.Equal(t, 500.0, maxDistance)
	spherical, _ := lookup(geoNear, "spherical")
	assert.Equal(t, true, spherical)

	q, ok := lookup(geoNear, "query")
	require.True(t, ok)
	pushdown := q.(bson.D)
	category, _ := lookup(pushdown, "category")
	assert.Equal(t, "bars", category)
	or, _ := lookup(pushdown, "$or")
	re := primitive.Regex{Pattern: `a\.b`, Options: "i"}
	assert.Equal(t, bson.A{bson.D{{Key: "name", Value: re}}, bson.D{{Key: "address", Value: re}}}, or)

	assert.Equal(t, bson.D{{Key: "distance", Value: 1}, {Key: "_id", Value: 1}}, stageValue(t, p[2]))
	assert.Equal(t, int64(20), p[3][0].Value)
	assert.Equal(t, int64(10), p[4][0].Value)
}

func TestFindPipeline_NoGeo(t *testing.T) {
	p := FindPipeline(query.Plan{Limit: 15})
	assert.Equal(t, []string{"$sort", "$limit"}, stageNames(p))
	assert.Equal(t, bson.D{{Key: "_id", Value: 1}}, stageValue(t, p[0]))

	p = FindPipeline(query.Plan{Filter: query.Filter{Category: venue.CategoryHotels}, Limit: 15})
	assert.Equal(t, []string{"$match", "$sort", "$limit"}, stageNames(p))
	assert.Equal(t, bson.D{{Key: "category", Value: "hotels"}}, stageValue(t, p[0]))
}

func TestFindPipeline_SaturatedSkip(t *testing.T) {
	p := FindPipeline(query.Plan{Skip: math.MaxInt, Limit: 100})
	assert.Equal(t, []string{"$sort", "$skip", "$limit"}, stageNames(p))
	assert.Equal(t, int64(math.MaxInt64), p[1][0].Value)
}

func TestFindPipeline_GeoWithoutPushdownOmitsQuery(t *testing.T) {
	p := FindPipeline(query.Plan{Near: &query.GeoNear{Center: venue.NewPoint(0, 0), MaxDistanceMeters: 10}})
	assert.Equal(t, []string{"$geoNear", "$sort"}, stageNames(p))
	_, ok := lookup(stageValue(t, p[0]), "query")
	assert.False(t, ok)
}

func TestCountPipeline_SharesFilterStages(t *testing.T) {
	plan := query.Plan{
		Near:   &query.GeoNear{Center: venue.NewPoint(1, 2), MaxDistanceMeters: 300},
		Filter: query.Filter{Category: venue.CategoryClubs, OpenNow: &query.OpenAt{Day: time.Friday, Clock: 60}},
		Skip:   30,
		Limit:  15,
	}
	find := FindPipeline(plan)
	count := CountPipeline(plan)

	assert.Equal(t, []string{"$geoNear", "$match", "$count"}, stageNames(count))
	assert.Equal(t, find[:2], count[:2])
	assert.Equal(t, "total", count[2][0].Value)
}

func TestOpenNowMatch_UsesTodayAndPreviousDay(t *testing.T) {
	m := OpenNowMatch(query.OpenAt{Day: time.Sunday, Clock: 90})

	raw, err := bson.MarshalExtJSON(m, false, false)
	require.NoError(t, err)
	js := string(raw)

	assert.Contains(t, js, `{"is24_7":true}`)
	assert.Contains(t, js, `"$openingHours.sunday.open"`)
	assert.Contains(t, js, `"$openingHours.saturday.close"`)
	assert.NotContains(t, js, "monday")
	assert.Contains(t, js, `"01:30"`)
}

func TestStatsPipeline(t *testing.T) {
	p := StatsPipeline()
	assert.Equal(t, []string{"$unwind", "$group", "$sort"}, stageNames(p))
	assert.Equal(t, "$category", p[0][0].Value)
}
