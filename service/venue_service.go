package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"venues-server/apperrors"
	"venues-server/logging"
	"venues-server/models/stats"
	"venues-server/models/venue"
	"venues-server/query"
	"venues-server/validation"
)

// VenueRepository is what both store backends provide.
type VenueRepository interface {
	query.VenueStore
	GetVenue(ctx context.Context, id string) (*venue.Venue, error)
	InsertVenue(ctx context.Context, v *venue.Venue) error
	ReplaceVenue(ctx context.Context, v *venue.Venue) error
	DeleteVenue(ctx context.Context, id string) error
	CategoryStats(ctx context.Context, since time.Time) (*stats.Dashboard, error)
}

// ChangeListener is told when the venue set changes.
type ChangeListener interface {
	Invalidate()
}

type VenueService struct {
	repo     VenueRepository
	engine   *query.Engine
	listener ChangeListener
	logger   zerolog.Logger
}

// NewVenueService wires the repository and the query engine that runs on
// top of it. listener may be nil.
func NewVenueService(repo VenueRepository, engine *query.Engine, listener ChangeListener) *VenueService {
	return &VenueService{
		repo:     repo,
		engine:   engine,
		listener: listener,
		logger:   logging.Component("venue_service"),
	}
}

// ListVenues parses a listing query string and executes it.
func (vs *VenueService) ListVenues(ctx context.Context, values url.Values) (*query.Result, error) {
	req, err := vs.engine.Parse(values)
	if err != nil {
		return nil, err
	}
	return vs.engine.Execute(ctx, req)
}

func (vs *VenueService) GetVenue(ctx context.Context, id string) (*venue.Venue, error) {
	return vs.repo.GetVenue(ctx, id)
}

// CreateVenue validates and stores a new venue built from input.
func (vs *VenueService) CreateVenue(ctx context.Context, input VenueInput) (*venue.Venue, error) {
	if input.Location == nil {
		return nil, apperrors.NewValidationError("location", "location is required")
	}

	v := &venue.Venue{}
	if err := input.Apply(v); err != nil {
		return nil, err
	}
	if err := validateVenue(v); err != nil {
		return nil, err
	}
	if err := vs.repo.InsertVenue(ctx, v); err != nil {
		return nil, fmt.Errorf("insert venue: %w", err)
	}

	vs.logger.Info().Str("id", v.ID).Str("name", v.Name).Strs("categories", v.Category.Strings()).Msg("Venue created")
	vs.changed()
	return v, nil
}

// UpdateVenue applies the fields present in input to an existing venue.
func (vs *VenueService) UpdateVenue(ctx context.Context, id string, input VenueInput) (*venue.Venue, error) {
	v, err := vs.repo.GetVenue(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.Apply(v); err != nil {
		return nil, err
	}
	if err := validateVenue(v); err != nil {
		return nil, err
	}
	if err := vs.repo.ReplaceVenue(ctx, v); err != nil {
		return nil, fmt.Errorf("replace venue: %w", err)
	}

	vs.logger.Info().Str("id", v.ID).Strs("categories", v.Category.Strings()).Msg("Venue updated")
	vs.changed()
	return v, nil
}

func (vs *VenueService) DeleteVenue(ctx context.Context, id string) error {
	if err := vs.repo.DeleteVenue(ctx, id); err != nil {
		return err
	}
	vs.logger.Info().Str("id", id).Msg("Venue deleted")
	vs.changed()
	return nil
}

func (vs *VenueService) changed() {
	if vs.listener != nil {
		vs.listener.Invalidate()
	}
}

func validateVenue(v *venue.Venue) error {
	if err := validation.ValidateStruct(v); err != nil {
		return err
	}
	if err := v.Location.Validate(); err != nil {
		return apperrors.NewValidationError("location", err.Error())
	}
	return nil
}
