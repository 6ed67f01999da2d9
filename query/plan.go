package query

import (
	"context"
	"sort"

	"venues-server/models/venue"
)

// GeoNear restricts a plan to venues within MaxDistanceMeters of Center and
// orders them nearest first.
type GeoNear struct {
	Center            venue.Point
	MaxDistanceMeters float64
}

// Plan is what a store executes: an optional distance-ordered scan, the
// filter, and the page window. Limit 0 means no limit.
type Plan struct {
	Near   *GeoNear
	Filter Filter
	Skip   int
	Limit  int
}

// Unpaged drops the page window, for counting.
func (p Plan) Unpaged() Plan {
	p.Skip, p.Limit = 0, 0
	return p
}

// VenueStore executes plans. FindVenues returns the page in plan order and
// sets Distance on every item when Near is set. CountVenues counts the full
// match set of the same plan, ignoring Skip and Limit.
type VenueStore interface {
	FindVenues(ctx context.Context, plan Plan) ([]venue.Venue, error)
	CountVenues(ctx context.Context, plan Plan) (int64, error)
}

// Window applies skip and limit to an already ordered slice.
func Window(items []venue.Venue, skip, limit int) []venue.Venue {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []venue.Venue{}
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// SortByDistance orders venues by Distance, then ID.
func SortByDistance(items []venue.Venue) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := distanceOf(&items[i]), distanceOf(&items[j])
		if di != dj {
			return di < dj
		}
		return items[i].ID < items[j].ID
	})
}

func distanceOf(v *venue.Venue) float64 {
	if v.Distance == nil {
		return 0
	}
	return *v.Distance
}
