package db

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key does not exist.
var ErrKeyNotFound = errors.New("redis: key not found")

// GeoHit is a GEO set member returned by a radius search, with its distance
// from the search center in meters.
type GeoHit struct {
	Member string
	Dist   float64
}

// RedisClient defines the methods the venue store needs from Redis.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error
	// MGet returns one entry per key; missing keys come back as "".
	MGet(ctx context.Context, keys ...string) ([]string, error)
	Incr(ctx context.Context, key string) (int64, error)

	GeoAdd(ctx context.Context, key, member string, lon, lat float64) error
	// GeoSearch returns members within radiusMeters, nearest first.
	GeoSearch(ctx context.Context, key string, lon, lat, radiusMeters float64) ([]GeoHit, error)

	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRem(ctx context.Context, key string, members ...string) error
	// ZRange returns every member ordered by score, then member.
	ZRange(ctx context.Context, key string) ([]string, error)

	Ping(ctx context.Context) error
}
