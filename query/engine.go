package query

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"venues-server/logging"
	"venues-server/metrics"
	"venues-server/models/venue"
)

// Result is one page of a listing query plus the size of the full match set.
type Result struct {
	Items         []venue.Venue
	TotalMatching int64
	Page          int
	Limit         int
	TotalPages    int
}

// Engine turns listing requests into plans and runs them against a store.
// It holds no per-request state.
type Engine struct {
	store    VenueStore
	limits   Limits
	location *time.Location
	now      func() time.Time
	timeout  time.Duration
	logger   zerolog.Logger
}

type Option func(*Engine)

func WithLimits(l Limits) Option {
	return func(e *Engine) { e.limits = l }
}

// WithLocation sets the zone open-now is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.location = loc }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTimeout bounds the store calls of one Execute. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func NewEngine(store VenueStore, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		limits:   DefaultLimits,
		location: time.Local,
		now:      time.Now,
		logger:   logging.Component("query"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Parse reads a request using the engine's limits.
func (e *Engine) Parse(values url.Values) (Request, error) {
	return ParseRequest(values, e.limits)
}

// Plan builds the store plan for req. ok is false when the request names a
// category outside the enumeration; such a request matches nothing.
func (e *Engine) Plan(req Request) (plan Plan, ok bool) {
	if req.Category != "" && req.Category != venue.CategoryAll {
		c := venue.Category(req.Category)
		if !c.IsKnown() {
			return Plan{}, false
		}
		plan.Filter.Category = c
	}

	plan.Filter.Search = req.Search

	if req.OpenNow {
		local := e.now().In(e.location)
		plan.Filter.OpenNow = &OpenAt{Day: local.Weekday(), Clock: venue.ClockOf(local)}
	}

	if req.HasGeo() {
		plan.Near = &GeoNear{
			Center:            venue.NewPoint(*req.Lng, *req.Lat),
			MaxDistanceMeters: float64(req.Radius),
		}
	}

	plan.Skip = pageOffset(req.Page, req.Limit)
	plan.Limit = req.Limit
	return plan, true
}

// pageOffset is page*limit, saturating at math.MaxInt.
func pageOffset(page, limit int) int {
	if page <= 0 || limit <= 0 {
		return 0
	}
	if page > math.MaxInt/limit {
		return math.MaxInt
	}
	return page * limit
}

// Execute runs the page read and the count read over the same plan. The two
// reads are not isolated from concurrent writes.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	result := &Result{Items: []venue.Venue{}, Page: req.Page, Limit: req.Limit}

	plan, ok := e.Plan(req)
	if !ok {
		e.logger.Debug().Str("category", req.Category).Msg("Unknown category, returning empty result")
		metrics.RecordQuery(req.HasGeo(), 0)
		return result, nil
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	items, err := e.store.FindVenues(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("find venues: %w", err)
	}
	total, err := e.store.CountVenues(ctx, plan.Unpaged())
	if err != nil {
		return nil, fmt.Errorf("count venues: %w", err)
	}

	if items != nil {
		result.Items = items
	}
	result.TotalMatching = total
	result.TotalPages = TotalPages(total, req.Limit)

	metrics.RecordQuery(plan.Near != nil, len(result.Items))
	e.logger.Debug().
		Bool("geo", plan.Near != nil).
		Str("category", string(plan.Filter.Category)).
		Bool("openNow", plan.Filter.OpenNow != nil).
		Int("skip", plan.Skip).
		Int("items", len(result.Items)).
		Int64("total", total).
		Msg("Listing query executed")
	return result, nil
}

// TotalPages is ceil(total / limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
