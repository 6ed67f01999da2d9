package query

import (
	"strings"
	"time"

	"venues-server/models/venue"
)

// OpenAt is the local weekday and time of day open-now is evaluated at.
type OpenAt struct {
	Day   time.Weekday
	Clock venue.Clock
}

// Filter is the conjunction of the non-spatial predicates. Zero values mean
// "no restriction".
type Filter struct {
	Category venue.Category
	Search   string
	OpenNow  *OpenAt
}

// Matches evaluates the whole filter against v.
func (f Filter) Matches(v *venue.Venue) bool {
	if f.Category != "" && !v.Category.Contains(f.Category) {
		return false
	}
	if !f.MatchesSearch(v) {
		return false
	}
	if f.OpenNow != nil && !v.IsOpenAt(f.OpenNow.Day, f.OpenNow.Clock) {
		return false
	}
	return true
}

// MatchesSearch is a case-insensitive literal substring test on name or
// address.
func (f Filter) MatchesSearch(v *venue.Venue) bool {
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(v.Name), needle) ||
		strings.Contains(strings.ToLower(v.Address), needle)
}
