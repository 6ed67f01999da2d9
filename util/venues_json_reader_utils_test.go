package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venues-server/models/venue"
)

func createTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "venues.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadVenueInputsFromJSON(t *testing.T) {
	path := createTempFile(t, `[
		{
			"name": "Blue Bar",
			"category": "bars, clubs",
			"address": "1 Main St",
			"location": {"lat": 40.7128, "lng": -74.006},
			"rating": 4.5
		},
		{
			"name": "Grand Hotel",
			"category": ["hotels"],
			"address": "2 Main St",
			"location": {"type": "Point", "coordinates": [-74.01, 40.71]},
			"is24_7": true
		}
	]`)

	inputs, err := ReadVenueInputsFromJSON(path)
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	assert.Equal(t, "Blue Bar", *inputs[0].Name)
	assert.Equal(t, venue.CategorySet{venue.CategoryBars, venue.CategoryClubs}, *inputs[0].Category)
	point, err := inputs[0].Location.Point()
	require.NoError(t, err)
	assert.Equal(t, venue.NewPoint(-74.006, 40.7128), point)

	assert.True(t, *inputs[1].Is24x7)
	point, err = inputs[1].Location.Point()
	require.NoError(t, err)
	assert.InDelta(t, 40.71, point.Lat(), 1e-9)
}

func TestReadVenueInputsFromJSON_Errors(t *testing.T) {
	_, err := ReadVenueInputsFromJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = ReadVenueInputsFromJSON(createTempFile(t, `{"name": "not an array"}`))
	assert.Error(t, err)
}
