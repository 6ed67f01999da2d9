package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"venues-server/logging"
)

// NewMongoClient connects and pings the primary.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("could not ping MongoDB: %w", err)
	}

	logger := logging.Component("mongo")
	logger.Info().Msg("Connected to MongoDB")
	return client, nil
}

// VenueIndexes are the indexes the listing query depends on: the geo index
// required by $geoNear, a text index over name and address, and category.
func VenueIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
			Options: options.Index().SetName("location_2dsphere"),
		},
		{
			Keys:    bson.D{{Key: "name", Value: "text"}, {Key: "address", Value: "text"}},
			Options: options.Index().SetName("name_address_text"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index().SetName("category_1"),
		},
	}
}

// EnsureVenueIndexes creates the venue indexes; existing ones are left as is.
func EnsureVenueIndexes(ctx context.Context, coll *mongo.Collection) error {
	names, err := coll.Indexes().CreateMany(ctx, VenueIndexes())
	if err != nil {
		return fmt.Errorf("failed to create venue indexes: %w", err)
	}
	logger := logging.Component("mongo")
	logger.Info().Strs("indexes", names).Str("collection", coll.Name()).Msg("Venue indexes ensured")
	return nil
}
