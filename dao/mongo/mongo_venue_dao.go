package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"venues-server/apperrors"
	"venues-server/logging"
	"venues-server/metrics"
	"venues-server/models/stats"
	"venues-server/models/venue"
	"venues-server/query"
)

const backend = "mongo"

// documentValidationFailure is the server code for a write rejected by the
// collection validator.
const documentValidationFailure = 121

// mongoVenue is the stored shape: the ObjectID as _id with the venue fields
// inlined next to it.
type mongoVenue struct {
	ObjectID    primitive.ObjectID `bson:"_id,omitempty"`
	venue.Venue `bson:",inline"`
}

func (d *mongoVenue) toVenue() venue.Venue {
	v := d.Venue
	v.ID = d.ObjectID.Hex()
	return v
}

// MongoVenueDAO runs listing plans as aggregation pipelines against a venue
// collection with a 2dsphere index on location.
type MongoVenueDAO struct {
	coll   *mongo.Collection
	now    func() time.Time
	logger zerolog.Logger
}

func NewMongoVenueDAO(coll *mongo.Collection) *MongoVenueDAO {
	return &MongoVenueDAO{
		coll:   coll,
		now:    time.Now,
		logger: logging.Component("mongo_venue_dao"),
	}
}

// FindVenues returns one page of the plan's match set.
func (dao *MongoVenueDAO) FindVenues(ctx context.Context, plan query.Plan) (_ []venue.Venue, err error) {
	defer metrics.ObserveStore(backend, "find", time.Now(), &err)

	cursor, err := dao.coll.Aggregate(ctx, FindPipeline(plan))
	if err != nil {
		return nil, classify("failed to aggregate venues", err)
	}
	var docs []mongoVenue
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify("failed to decode venues", err)
	}

	out := make([]venue.Venue, len(docs))
	for i := range docs {
		out[i] = docs[i].toVenue()
	}
	return out, nil
}

// CountVenues counts the plan's full match set.
func (dao *MongoVenueDAO) CountVenues(ctx context.Context, plan query.Plan) (_ int64, err error) {
	defer metrics.ObserveStore(backend, "count", time.Now(), &err)

	cursor, err := dao.coll.Aggregate(ctx, CountPipeline(plan))
	if err != nil {
		return 0, classify("failed to count venues", err)
	}
	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, classify("failed to decode venue count", err)
	}
	// $count emits no document for an empty match set.
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

// GetVenue returns the venue with the given hex ID.
func (dao *MongoVenueDAO) GetVenue(ctx context.Context, id string) (_ *venue.Venue, err error) {
	defer metrics.ObserveStore(backend, "get", time.Now(), &err)

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc mongoVenue
	if err := dao.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NewNotFoundError("Venue not found")
		}
		return nil, classify("failed to get venue", err)
	}
	v := doc.toVenue()
	return &v, nil
}

// InsertVenue stores a new venue and sets its ID and timestamps.
func (dao *MongoVenueDAO) InsertVenue(ctx context.Context, v *venue.Venue) (err error) {
	defer metrics.ObserveStore(backend, "insert", time.Now(), &err)

	now := dao.now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	v.Distance = nil

	doc := mongoVenue{ObjectID: primitive.NewObjectID(), Venue: *v}
	if v.ID != "" {
		if doc.ObjectID, err = primitive.ObjectIDFromHex(v.ID); err != nil {
			return apperrors.NewValidationError("id", "id must be a 24 character hex string")
		}
	}

	if _, err := dao.coll.InsertOne(ctx, &doc); err != nil {
		return classify("failed to insert venue", err)
	}
	v.ID = doc.ObjectID.Hex()
	dao.logger.Debug().Str("id", v.ID).Msg("Inserted venue")
	return nil
}

// ReplaceVenue overwrites an existing venue, keeping its creation time.
func (dao *MongoVenueDAO) ReplaceVenue(ctx context.Context, v *venue.Venue) (err error) {
	defer metrics.ObserveStore(backend, "replace", time.Now(), &err)

	oid, err := objectID(v.ID)
	if err != nil {
		return err
	}
	var old mongoVenue
	filter := bson.D{{Key: "_id", Value: oid}}
	if err := dao.coll.FindOne(ctx, filter).Decode(&old); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperrors.NewNotFoundError("Venue not found")
		}
		return classify("failed to get venue", err)
	}

	v.CreatedAt = old.CreatedAt
	v.UpdatedAt = dao.now().UTC()
	v.Distance = nil

	res, err := dao.coll.ReplaceOne(ctx, filter, &mongoVenue{ObjectID: oid, Venue: *v})
	if err != nil {
		return classify("failed to replace venue", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NewNotFoundError("Venue not found")
	}
	return nil
}

// DeleteVenue removes the venue with the given ID.
func (dao *MongoVenueDAO) DeleteVenue(ctx context.Context, id string) (err error) {
	defer metrics.ObserveStore(backend, "delete", time.Now(), &err)

	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := dao.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return classify("failed to delete venue", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NewNotFoundError("Venue not found")
	}
	return nil
}

// CategoryStats aggregates counts and average ratings per category, the
// total number of venues and how many were created at or after since.
func (dao *MongoVenueDAO) CategoryStats(ctx context.Context, since time.Time) (_ *stats.Dashboard, err error) {
	defer metrics.ObserveStore(backend, "stats", time.Now(), &err)

	cursor, err := dao.coll.Aggregate(ctx, StatsPipeline())
	if err != nil {
		return nil, classify("failed to aggregate category stats", err)
	}
	dashboard := &stats.Dashboard{Stats: []stats.CategoryStat{}}
	if err := cursor.All(ctx, &dashboard.Stats); err != nil {
		return nil, classify("failed to decode category stats", err)
	}
	for i := range dashboard.Stats {
		if avg := dashboard.Stats[i].AvgRating; avg != nil {
			rounded := stats.RoundRating(*avg)
			dashboard.Stats[i].AvgRating = &rounded
		}
	}

	if dashboard.TotalVenues, err = dao.coll.CountDocuments(ctx, bson.D{}); err != nil {
		return nil, classify("failed to count venues", err)
	}
	recent := bson.D{{Key: "createdAt", Value: bson.D{{Key: "$gte", Value: since}}}}
	if dashboard.RecentVenues, err = dao.coll.CountDocuments(ctx, recent); err != nil {
		return nil, classify("failed to count recent venues", err)
	}
	return dashboard, nil
}

// objectID parses a hex ID. A malformed ID cannot name any document, so it
// is reported as not found.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperrors.NewNotFoundError("Venue not found")
	}
	return oid, nil
}

// classify maps driver errors onto the application error types.
func classify(message string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.NewConflictError("Duplicate field value", err)
	}
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorCode(documentValidationFailure) {
		return &apperrors.AppError{
			Type:    apperrors.ErrorTypeValidation,
			Message: "Invalid input data",
			Err:     err,
		}
	}
	return apperrors.NewStoreError(message, err)
}
