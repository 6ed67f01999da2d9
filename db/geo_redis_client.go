package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"venues-server/logging"
)

// GeoRedisClient implements RedisClient on top of go-redis.
type GeoRedisClient struct {
	client *redis.Client
}

// NewGeoRedisClient wraps client after checking the connection.
func NewGeoRedisClient(ctx context.Context, client *redis.Client) (*GeoRedisClient, error) {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	logger := logging.Component("redis")
	logger.Info().Str("addr", client.Options().Addr).Msg("Connected to Redis")

	return &GeoRedisClient{client: client}, nil
}

// Get retrieves the value for a given key from Redis
func (r *GeoRedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return val, err
}

// Set sets a key-value pair in Redis
func (r *GeoRedisClient) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *GeoRedisClient) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *GeoRedisClient) MGet(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i] = s
		}
	}
	return out, nil
}

func (r *GeoRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *GeoRedisClient) GeoAdd(ctx context.Context, key, member string, lon, lat float64) error {
	if err := r.client.GeoAdd(ctx, key, &redis.GeoLocation{
		Name:      member,
		Longitude: lon,
		Latitude:  lat,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add geolocation: %w", err)
	}
	return nil
}

// GeoSearch runs GEOSEARCH ... FROMLONLAT lon lat BYRADIUS r m ASC WITHDIST.
func (r *GeoRedisClient) GeoSearch(ctx context.Context, key string, lon, lat, radiusMeters float64) ([]GeoHit, error) {
	locs, err := r.client.GeoSearchLocation(ctx, key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  lon,
			Latitude:   lat,
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get nearby locations: %w", err)
	}

	hits := make([]GeoHit, len(locs))
	for i, loc := range locs {
		hits[i] = GeoHit{Member: loc.Name, Dist: loc.Dist}
	}
	return hits, nil
}

func (r *GeoRedisClient) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return r.client.ZAdd(ctx, key, &redis.Z{Score: score, Member: member}).Err()
}

func (r *GeoRedisClient) ZRem(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return r.client.ZRem(ctx, key, args...).Err()
}

func (r *GeoRedisClient) ZRange(ctx context.Context, key string) ([]string, error) {
	return r.client.ZRange(ctx, key, 0, -1).Result()
}

func (r *GeoRedisClient) Ping(ctx context.Context) error {
	_, err := r.client.Ping(ctx).Result()
	return err
}
