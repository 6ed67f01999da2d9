package query

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"venues-server/apperrors"
	"venues-server/validation"
)

// Limits bound the paging and radius parameters.
type Limits struct {
	DefaultLimit  int
	MaxLimit      int
	DefaultRadius int
	MaxRadius     int
}

// DefaultLimits are used when the engine is built without explicit limits.
var DefaultLimits = Limits{
	DefaultLimit:  15,
	MaxLimit:      100,
	DefaultRadius: 5000,
	MaxRadius:     100000,
}

// Request is a parsed and validated listing query.
type Request struct {
	// Category is empty or "all" for no restriction.
	Category string   `query:"category"`
	Lat      *float64 `query:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng      *float64 `query:"lng" validate:"omitempty,gte=-180,lte=180"`
	Radius   int      `query:"radius" validate:"gt=0"`
	Search   string   `query:"search"`
	OpenNow  bool     `query:"openNow"`
	Page     int      `query:"page" validate:"gte=0"`
	Limit    int      `query:"limit" validate:"gte=1"`
}

// HasGeo reports whether a proximity filter was requested.
func (r Request) HasGeo() bool {
	return r.Lat != nil && r.Lng != nil
}

// ParseRequest reads the listing parameters from a query string. Absent or
// empty parameters take their defaults; malformed ones are reported as
// validation errors naming the parameter.
func ParseRequest(values url.Values, limits Limits) (Request, error) {
	req := Request{
		Category: strings.ToLower(strings.TrimSpace(values.Get("category"))),
		Search:   strings.TrimSpace(values.Get("search")),
		OpenNow:  values.Get("openNow") == "true",
		Radius:   limits.DefaultRadius,
		Limit:    limits.DefaultLimit,
	}

	var err error
	if req.Lat, err = optionalFloat(values, "lat"); err != nil {
		return Request{}, err
	}
	if req.Lng, err = optionalFloat(values, "lng"); err != nil {
		return Request{}, err
	}
	switch {
	case req.Lat != nil && req.Lng == nil:
		return Request{}, apperrors.NewValidationError("lng", "lng is required when lat is given")
	case req.Lng != nil && req.Lat == nil:
		return Request{}, apperrors.NewValidationError("lat", "lat is required when lng is given")
	}

	if err := optionalInt(values, "radius", &req.Radius); err != nil {
		return Request{}, err
	}
	if err := optionalInt(values, "page", &req.Page); err != nil {
		return Request{}, err
	}
	if err := optionalInt(values, "limit", &req.Limit); err != nil {
		return Request{}, err
	}

	if req.Page < 0 {
		req.Page = 0
	}
	if err := validation.ValidateStruct(req); err != nil {
		return Request{}, err
	}
	if limits.MaxRadius > 0 && req.Radius > limits.MaxRadius {
		return Request{}, apperrors.NewValidationError("radius",
			fmt.Sprintf("radius must be at most %d", limits.MaxRadius))
	}
	if limits.MaxLimit > 0 && req.Limit > limits.MaxLimit {
		req.Limit = limits.MaxLimit
	}
	if maxPage := math.MaxInt / req.Limit; req.Page > maxPage {
		return Request{}, apperrors.NewValidationError("page",
			fmt.Sprintf("page must be at most %d", maxPage))
	}
	return req, nil
}

func optionalFloat(values url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.NewValidationError(name, name+" must be a number")
	}
	return &f, nil
}

func optionalInt(values url.Values, name string, dst *int) error {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return apperrors.NewValidationError(name, name+" must be an integer")
	}
	*dst = n
	return nil
}
