package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"venues-server/apperrors"
	"venues-server/db"
	"venues-server/logging"
	"venues-server/metrics"
	"venues-server/models/stats"
	"venues-server/models/venue"
	"venues-server/query"
)

const VENUE_KEY_FORMAT_V2 = "venue_v2:%s"
const VENUES_GEO_KEY_V2 = "venues_geo_v2:all"
const VENUES_GEO_CATEGORY_KEY_FORMAT_V2 = "venues_geo_v2:cat:%s"
const VENUES_ORDER_KEY_V2 = "venues_order_v2:all"
const VENUES_ORDER_CATEGORY_KEY_FORMAT_V2 = "venues_order_v2:cat:%s"
const VENUES_SEQ_KEY_V2 = "venues_seq_v2"

const backend = "redis"

// MaxGeoLatitude is the latitude band Redis GEO commands accept.
const MaxGeoLatitude = 85.05112878

// storedVenue is the JSON document kept per venue. Seq is the insertion
// sequence used as the score of the order sets.
type storedVenue struct {
	venue.Venue
	Seq int64 `json:"seq"`
}

// RedisVenueDAO stores venues as JSON documents with GEO sets and insertion
// order sets per category next to them. Listing queries use the narrowest
// index for the scan and evaluate the remaining predicates in process.
type RedisVenueDAO struct {
	client db.RedisClient
	now    func() time.Time
	logger zerolog.Logger
}

// NewRedisVenueDAO initializes a RedisVenueDAO with the Redis client.
func NewRedisVenueDAO(client db.RedisClient) *RedisVenueDAO {
	return &RedisVenueDAO{
		client: client,
		now:    time.Now,
		logger: logging.Component("redis_venue_dao"),
	}
}

func venueKey(id string) string {
	return fmt.Sprintf(VENUE_KEY_FORMAT_V2, id)
}

func geoKey(c venue.Category) string {
	if c == "" {
		return VENUES_GEO_KEY_V2
	}
	return fmt.Sprintf(VENUES_GEO_CATEGORY_KEY_FORMAT_V2, c)
}

func orderKey(c venue.Category) string {
	if c == "" {
		return VENUES_ORDER_KEY_V2
	}
	return fmt.Sprintf(VENUES_ORDER_CATEGORY_KEY_FORMAT_V2, c)
}

func checkGeoLatitude(v *venue.Venue) error {
	if lat := v.Location.Lat(); lat > MaxGeoLatitude || lat < -MaxGeoLatitude {
		return apperrors.NewValidationError("location",
			fmt.Sprintf("location latitude must be within +-%.5f for this store", MaxGeoLatitude))
	}
	return nil
}

// InsertVenue stores a new venue. An empty ID is replaced by a UUID.
func (dao *RedisVenueDAO) InsertVenue(ctx context.Context, v *venue.Venue) (err error) {
	defer metrics.ObserveStore(backend, "insert", time.Now(), &err)

	if err := checkGeoLatitude(v); err != nil {
		return err
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	} else if _, err := dao.client.Get(ctx, venueKey(v.ID)); err == nil {
		return apperrors.NewConflictError(fmt.Sprintf("Duplicate field value: id %q already exists", v.ID), nil)
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return apperrors.NewStoreError("failed to check venue id", err)
	}

	seq, err := dao.client.Incr(ctx, VENUES_SEQ_KEY_V2)
	if err != nil {
		return apperrors.NewStoreError("failed to allocate venue sequence", err)
	}

	now := dao.now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	v.Distance = nil

	doc := storedVenue{Venue: *v, Seq: seq}
	if err := dao.write(ctx, &doc); err != nil {
		return err
	}
	if err := dao.index(ctx, &doc); err != nil {
		return err
	}
	dao.logger.Debug().Str("id", v.ID).Msg("Inserted venue")
	return nil
}

// ReplaceVenue overwrites an existing venue, keeping its ID, creation time
// and position in insertion order.
func (dao *RedisVenueDAO) ReplaceVenue(ctx context.Context, v *venue.Venue) (err error) {
	defer metrics.ObserveStore(backend, "replace", time.Now(), &err)

	if err := checkGeoLatitude(v); err != nil {
		return err
	}
	old, err := dao.load(ctx, v.ID)
	if err != nil {
		return err
	}

	v.CreatedAt = old.CreatedAt
	v.UpdatedAt = dao.now().UTC()
	v.Distance = nil
	doc := storedVenue{Venue: *v, Seq: old.Seq}

	if err := dao.unindex(ctx, old); err != nil {
		return err
	}
	if err := dao.write(ctx, &doc); err != nil {
		return err
	}
	return dao.index(ctx, &doc)
}

// GetVenue returns the venue with the given ID.
func (dao *RedisVenueDAO) GetVenue(ctx context.Context, id string) (_ *venue.Venue, err error) {
	defer metrics.ObserveStore(backend, "get", time.Now(), &err)

	doc, err := dao.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &doc.Venue, nil
}

// DeleteVenue removes the document and every index entry.
func (dao *RedisVenueDAO) DeleteVenue(ctx context.Context, id string) (err error) {
	defer metrics.ObserveStore(backend, "delete", time.Now(), &err)

	doc, err := dao.load(ctx, id)
	if err != nil {
		return err
	}
	if err := dao.unindex(ctx, doc); err != nil {
		return err
	}
	if err := dao.client.Del(ctx, venueKey(id)); err != nil {
		return apperrors.NewStoreError("failed to delete venue", err)
	}
	dao.logger.Debug().Str("id", id).Msg("Deleted venue")
	return nil
}

// FindVenues returns one page of the plan's match set.
func (dao *RedisVenueDAO) FindVenues(ctx context.Context, plan query.Plan) (_ []venue.Venue, err error) {
	defer metrics.ObserveStore(backend, "find", time.Now(), &err)

	matched, err := dao.match(ctx, plan)
	if err != nil {
		return nil, err
	}
	return query.Window(matched, plan.Skip, plan.Limit), nil
}

// CountVenues counts the plan's full match set.
func (dao *RedisVenueDAO) CountVenues(ctx context.Context, plan query.Plan) (_ int64, err error) {
	defer metrics.ObserveStore(backend, "count", time.Now(), &err)

	matched, err := dao.match(ctx, plan)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// match returns every venue satisfying plan, in plan order. The category,
// when set, selects the per-category index; the other predicates are
// evaluated on the decoded documents.
func (dao *RedisVenueDAO) match(ctx context.Context, plan query.Plan) ([]venue.Venue, error) {
	if plan.Near != nil {
		return dao.matchNear(ctx, plan)
	}

	ids, err := dao.client.ZRange(ctx, orderKey(plan.Filter.Category))
	if err != nil {
		return nil, apperrors.NewStoreError("failed to read venue order", err)
	}
	docs, err := dao.loadMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]venue.Venue, 0, len(docs))
	for i := range docs {
		if docs[i] != nil && plan.Filter.Matches(&docs[i].Venue) {
			out = append(out, docs[i].Venue)
		}
	}
	return out, nil
}

func (dao *RedisVenueDAO) matchNear(ctx context.Context, plan query.Plan) ([]venue.Venue, error) {
	center := plan.Near.Center
	hits, err := dao.client.GeoSearch(ctx, geoKey(plan.Filter.Category),
		center.Lon(), center.Lat(), plan.Near.MaxDistanceMeters)
	if err != nil {
		return nil, apperrors.NewStoreError("failed to search nearby venues", err)
	}

	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.Member
	}
	docs, err := dao.loadMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]venue.Venue, 0, len(docs))
	for i := range docs {
		if docs[i] == nil || !plan.Filter.Matches(&docs[i].Venue) {
			continue
		}
		v := docs[i].Venue
		dist := hits[i].Dist
		v.Distance = &dist
		out = append(out, v)
	}
	query.SortByDistance(out)
	return out, nil
}

// CategoryStats aggregates counts and average ratings per category, the
// total number of venues and how many were created at or after since.
func (dao *RedisVenueDAO) CategoryStats(ctx context.Context, since time.Time) (_ *stats.Dashboard, err error) {
	defer metrics.ObserveStore(backend, "stats", time.Now(), &err)

	ids, err := dao.client.ZRange(ctx, VENUES_ORDER_KEY_V2)
	if err != nil {
		return nil, apperrors.NewStoreError("failed to read venue order", err)
	}
	docs, err := dao.loadMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	type acc struct {
		count, rated int64
		sum          float64
	}
	byCategory := map[venue.Category]*acc{}
	dashboard := &stats.Dashboard{Stats: []stats.CategoryStat{}}

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		dashboard.TotalVenues++
		if !doc.CreatedAt.Before(since) {
			dashboard.RecentVenues++
		}
		for _, c := range doc.Category {
			a, ok := byCategory[c]
			if !ok {
				a = &acc{}
				byCategory[c] = a
			}
			a.count++
			if doc.Rating != nil {
				a.rated++
				a.sum += *doc.Rating
			}
		}
	}

	for c, a := range byCategory {
		stat := stats.CategoryStat{Category: string(c), Count: a.count}
		if a.rated > 0 {
			avg := stats.RoundRating(a.sum / float64(a.rated))
			stat.AvgRating = &avg
		}
		dashboard.Stats = append(dashboard.Stats, stat)
	}
	stats.SortStats(dashboard.Stats)
	return dashboard, nil
}

func (dao *RedisVenueDAO) load(ctx context.Context, id string) (*storedVenue, error) {
	str, err := dao.client.Get(ctx, venueKey(id))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, apperrors.NewNotFoundError("Venue not found")
	}
	if err != nil {
		return nil, apperrors.NewStoreError("failed to get venue", err)
	}
	var doc storedVenue
	if err := json.Unmarshal([]byte(str), &doc); err != nil {
		return nil, apperrors.NewStoreError(fmt.Sprintf("failed to unmarshal venue %s", id), err)
	}
	return &doc, nil
}

// loadMany decodes the documents for ids; entries whose document has gone
// missing are nil.
func (dao *RedisVenueDAO) loadMany(ctx context.Context, ids []string) ([]*storedVenue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = venueKey(id)
	}
	raw, err := dao.client.MGet(ctx, keys...)
	if err != nil {
		return nil, apperrors.NewStoreError("failed to get venues", err)
	}

	docs := make([]*storedVenue, len(raw))
	for i, str := range raw {
		if str == "" {
			dao.logger.Warn().Str("id", ids[i]).Msg("Skipping indexed venue without document")
			continue
		}
		var doc storedVenue
		if err := json.Unmarshal([]byte(str), &doc); err != nil {
			return nil, apperrors.NewStoreError(fmt.Sprintf("failed to unmarshal venue %s", ids[i]), err)
		}
		docs[i] = &doc
	}
	return docs, nil
}

func (dao *RedisVenueDAO) write(ctx context.Context, doc *storedVenue) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal venue %s: %w", doc.ID, err)
	}
	if err := dao.client.Set(ctx, venueKey(doc.ID), string(data)); err != nil {
		return apperrors.NewStoreError("failed to set venue", err)
	}
	return nil
}

func (dao *RedisVenueDAO) index(ctx context.Context, doc *storedVenue) error {
	lon, lat := doc.Location.Lon(), doc.Location.Lat()
	score := float64(doc.Seq)

	for _, c := range append([]venue.Category{""}, doc.Category...) {
		if err := dao.client.GeoAdd(ctx, geoKey(c), doc.ID, lon, lat); err != nil {
			return apperrors.NewStoreError("failed to index venue location", err)
		}
		if err := dao.client.ZAdd(ctx, orderKey(c), score, doc.ID); err != nil {
			return apperrors.NewStoreError("failed to index venue order", err)
		}
	}
	return nil
}

func (dao *RedisVenueDAO) unindex(ctx context.Context, doc *storedVenue) error {
	for _, c := range append([]venue.Category{""}, doc.Category...) {
		if err := dao.client.ZRem(ctx, geoKey(c), doc.ID); err != nil {
			return apperrors.NewStoreError("failed to unindex venue location", err)
		}
		if err := dao.client.ZRem(ctx, orderKey(c), doc.ID); err != nil {
			return apperrors.NewStoreError("failed to unindex venue order", err)
		}
	}
	return nil
}
