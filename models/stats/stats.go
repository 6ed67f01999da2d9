package stats

import (
	"math"
	"sort"
	"time"
)

// CategoryStat aggregates the venues tagged with one category. A venue with
// several categories counts once in each.
type CategoryStat struct {
	Category  string   `json:"category" bson:"_id"`
	Count     int64    `json:"count" bson:"count"`
	AvgRating *float64 `json:"avgRating" bson:"avgRating"`
}

// Dashboard is the admin overview snapshot.
type Dashboard struct {
	Stats        []CategoryStat `json:"stats"`
	TotalVenues  int64          `json:"totalVenues"`
	RecentVenues int64          `json:"recentVenues"`
	GeneratedAt  time.Time      `json:"generatedAt"`
}

// RoundRating rounds an average rating to one decimal.
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}

// SortStats orders by count descending, then category name.
func SortStats(s []CategoryStat) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Count != s[j].Count {
			return s[i].Count > s[j].Count
		}
		return s[i].Category < s[j].Category
	})
}
