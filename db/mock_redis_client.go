package db

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"

	"venues-server/models/venue"
)

// MockRedisClient simulates a Redis client for testing purposes. GEO
// searches use real great-circle distances so ordering and radius checks
// behave like the server.
type MockRedisClient struct {
	data    map[string]string                 // Key-value store
	geoData map[string]map[string]venue.Point // Geolocation data
	zsets   map[string]map[string]float64     // Sorted sets
	mu      sync.RWMutex                      // Mutex for thread-safe operations

	// FailWith, when set, is returned by every call.
	FailWith error
}

// NewMockRedisClient initializes a new MockRedisClient.
func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		data:    make(map[string]string),
		geoData: make(map[string]map[string]venue.Point),
		zsets:   make(map[string]map[string]float64),
	}
}

func (m *MockRedisClient) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return "", m.FailWith
	}
	value, exists := m.data[key]
	if !exists {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (m *MockRedisClient) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.data[key] = value
	return nil
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	for _, key := range keys {
		delete(m.data, key)
		delete(m.geoData, key)
		delete(m.zsets, key)
	}
	return nil
}

func (m *MockRedisClient) MGet(ctx context.Context, keys ...string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = m.data[key]
	}
	return out, nil
}

func (m *MockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return 0, m.FailWith
	}
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *MockRedisClient) GeoAdd(ctx context.Context, key, member string, lon, lat float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if _, exists := m.geoData[key]; !exists {
		m.geoData[key] = make(map[string]venue.Point)
	}
	m.geoData[key][member] = venue.NewPoint(lon, lat)
	return nil
}

func (m *MockRedisClient) GeoSearch(ctx context.Context, key string, lon, lat, radiusMeters float64) ([]GeoHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	center := venue.NewPoint(lon, lat)
	var hits []GeoHit
	for member, p := range m.geoData[key] {
		// Redis reports distances rounded to 4 decimals.
		d := math.Round(venue.DistanceMeters(center, p)*1e4) / 1e4
		if d <= radiusMeters {
			hits = append(hits, GeoHit{Member: member, Dist: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Dist != hits[j].Dist {
			return hits[i].Dist < hits[j].Dist
		}
		return hits[i].Member < hits[j].Member
	})
	return hits, nil
}

func (m *MockRedisClient) ZAdd(ctx context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if _, exists := m.zsets[key]; !exists {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] = score
	return nil
}

// ZRem removes members from both plain sorted sets and GEO sets, which are
// sorted sets on the server.
func (m *MockRedisClient) ZRem(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	for _, member := range members {
		delete(m.zsets[key], member)
		delete(m.geoData[key], member)
	}
	return nil
}

func (m *MockRedisClient) ZRange(ctx context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	set := m.zsets[key]
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		si, sj := set[members[i]], set[members[j]]
		if si != sj {
			return si < sj
		}
		return members[i] < members[j]
	})
	return members, nil
}

// Ping simulates a Redis Ping operation.
func (m *MockRedisClient) Ping(ctx context.Context) error {
	return m.FailWith
}
