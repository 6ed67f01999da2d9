package venue

import "time"

// Venue is a point of interest listed in the directory.
type Venue struct {
	ID           string       `json:"id" bson:"-"`
	Name         string       `json:"name" bson:"name" validate:"required"`
	Category     CategorySet  `json:"category" bson:"category" validate:"min=1,dive,venuecategory"`
	Location     Point        `json:"location" bson:"location"`
	Address      string       `json:"address" bson:"address" validate:"required"`
	Phone        string       `json:"phone,omitempty" bson:"phone,omitempty"`
	Website      string       `json:"website,omitempty" bson:"website,omitempty"`
	Rating       *float64     `json:"rating,omitempty" bson:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	OpeningHours OpeningHours `json:"openingHours" bson:"openingHours"`
	Is24x7       bool         `json:"is24_7" bson:"is24_7"`
	Photos       []string     `json:"photos,omitempty" bson:"photos,omitempty"`
	PlaceType    []string     `json:"placeType,omitempty" bson:"placeType,omitempty"`
	CreatedAt    time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt" bson:"updatedAt"`

	// Distance in meters from the query center; only set on geo queries.
	Distance *float64 `json:"distance,omitempty" bson:"distance,omitempty"`
}

// IsOpenAt reports whether the venue is open on the given weekday at the
// given local clock time. A window whose close is earlier than its open runs
// past midnight, so the previous day's window is consulted as well.
func (v *Venue) IsOpenAt(day time.Weekday, clock Clock) bool {
	if v.Is24x7 {
		return true
	}
	if h := v.OpeningHours.ForDay(day); h != nil && h.ContainsSameDay(clock) {
		return true
	}
	if h := v.OpeningHours.ForDay(PreviousDay(day)); h != nil && h.SpillsInto(clock) {
		return true
	}
	return false
}
