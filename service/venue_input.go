package services

import (
	"venues-server/apperrors"
	"venues-server/models/venue"
)

// LocationInput accepts either {lat, lng} or GeoJSON-style
// {type, coordinates: [lng, lat]}.
type LocationInput struct {
	Lat         *float64  `json:"lat"`
	Lng         *float64  `json:"lng"`
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Point normalises the input to a GeoJSON point. lat/lng wins when both
// shapes are present.
func (l *LocationInput) Point() (venue.Point, error) {
	switch {
	case l.Lat != nil && l.Lng != nil:
		return venue.NewPoint(*l.Lng, *l.Lat), nil
	case len(l.Coordinates) == 2:
		return venue.NewPoint(l.Coordinates[0], l.Coordinates[1]), nil
	default:
		return venue.Point{}, apperrors.NewValidationError("location",
			"location must have lat and lng or coordinates [lng, lat]")
	}
}

// VenueInput is an admin write. Absent fields are left unchanged on
// update. Category accepts an array or a comma separated string.
type VenueInput struct {
	Name         *string             `json:"name"`
	Category     *venue.CategorySet  `json:"category"`
	Location     *LocationInput      `json:"location"`
	Address      *string             `json:"address"`
	Phone        *string             `json:"phone"`
	Website      *string             `json:"website"`
	Rating       *float64            `json:"rating"`
	OpeningHours *venue.OpeningHours `json:"openingHours"`
	Is24x7       *bool               `json:"is24_7"`
	Photos       []string            `json:"photos"`
	PlaceType    []string            `json:"placeType"`
}

// Apply copies the present fields onto v.
func (in *VenueInput) Apply(v *venue.Venue) error {
	if in.Name != nil {
		v.Name = *in.Name
	}
	if in.Category != nil {
		v.Category = *in.Category
	}
	if in.Location != nil {
		p, err := in.Location.Point()
		if err != nil {
			return err
		}
		v.Location = p
	}
	if in.Address != nil {
		v.Address = *in.Address
	}
	if in.Phone != nil {
		v.Phone = *in.Phone
	}
	if in.Website != nil {
		v.Website = *in.Website
	}
	if in.Rating != nil {
		r := *in.Rating
		v.Rating = &r
	}
	if in.OpeningHours != nil {
		v.OpeningHours = *in.OpeningHours
	}
	if in.Is24x7 != nil {
		v.Is24x7 = *in.Is24x7
	}
	if in.Photos != nil {
		v.Photos = in.Photos
	}
	if in.PlaceType != nil {
		v.PlaceType = in.PlaceType
	}
	return nil
}
