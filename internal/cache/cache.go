// Package cache implements the Redis cache-through/write-through layer
// shared by every handler family (HR, Drive, ERP). Every key follows
// cache:{user}:{tenant}:{family}:{subkey}; every stored value is an
// envelope of {data, cached_at, ttl_seconds, source}.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kabsikabs/integration-core/internal/telemetry"
)

// Envelope is the exact JSON shape stored for every cache entry.
type Envelope struct {
	Data       any       `json:"data"`
	CachedAt   time.Time `json:"cached_at"`
	TTLSeconds int       `json:"ttl_seconds"`
	Source     string    `json:"source"`
}

// Stats summarizes the cache footprint for one (user, tenant) pair.
type Stats struct {
	Count         int            `json:"count"`
	Bytes         int            `json:"bytes"`
	Oldest        *time.Time     `json:"oldest,omitempty"`
	Newest        *time.Time     `json:"newest,omitempty"`
	PerFamilyCount map[string]int `json:"per_family_count"`
}

// Manager is the Redis-backed cache-through layer. All operations degrade
// gracefully: a transport error is treated as a miss on read and a no-op
// on write/invalidate, so the caller always falls back to the backend.
type Manager struct {
	rdb *redis.Client
}

// New wraps an already-connected Redis client.
func New(rdb *redis.Client) *Manager {
	return &Manager{rdb: rdb}
}

func buildKey(user, tenant, family, subkey string) string {
	key := fmt.Sprintf("cache:%s:%s:%s", user, tenant, family)
	if subkey != "" {
		key += ":" + subkey
	}
	return key
}

// Get attempts a cache read. It returns (nil, false) on miss, transport
// error, or when the stored payload is an empty list/map/null — an empty
// result is never served as a hit, and the stale entry is deleted.
func (m *Manager) Get(ctx context.Context, user, tenant, family, subkey string) (*Envelope, bool) {
	key := buildKey(user, tenant, family, subkey)

	raw, err := m.rdb.Get(ctx, key).Result()
	if err != nil {
		telemetry.CacheMissesTotal.WithLabelValues(family).Inc()
		return nil, false
	}

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		telemetry.CacheMissesTotal.WithLabelValues(family).Inc()
		return nil, false
	}

	if isEmpty(env.Data) {
		_ = m.rdb.Del(ctx, key).Err()
		telemetry.CacheMissesTotal.WithLabelValues(family).Inc()
		return nil, false
	}

	telemetry.CacheHitsTotal.WithLabelValues(family).Inc()
	return &env, true
}

// isEmpty reports whether data is nil, a nil/zero-length slice or map, or a
// nil pointer — checked by reflection rather than a type switch so it also
// catches concretely-typed results (e.g. []Employee, []string) and not just
// the []any/map[string]any shapes a JSON-decoded envelope comes back as.
func isEmpty(data any) bool {
	if data == nil {
		return true
	}
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Ptr:
		return v.IsNil()
	default:
		return false
	}
}

// Set stores data under (user, tenant, family, subkey) with the given TTL,
// using SETEX for an atomic value+expiry write. Empty data is rejected and
// never written, matching the read-side rule that empty results aren't
// real cache entries.
func (m *Manager) Set(ctx context.Context, user, tenant, family, subkey string, data any, ttlSeconds int) bool {
	if isEmpty(data) {
		return false
	}

	source := family
	if subkey != "" {
		source = family + "." + subkey
	}

	env := Envelope{
		Data:       data,
		CachedAt:   time.Now().UTC(),
		TTLSeconds: ttlSeconds,
		Source:     source,
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return false
	}

	key := buildKey(user, tenant, family, subkey)
	if err := m.rdb.SetEx(ctx, key, payload, time.Duration(ttlSeconds)*time.Second).Err(); err != nil {
		return false
	}
	return true
}

// Invalidate deletes a single (user, tenant, family, subkey) entry.
func (m *Manager) Invalidate(ctx context.Context, user, tenant, family, subkey string) bool {
	key := buildKey(user, tenant, family, subkey)
	return m.rdb.Del(ctx, key).Err() == nil
}

// InvalidateFamily deletes every subkey under (user, tenant, family) using
// a cursor SCAN (batch size 100) followed by batched deletes (≤1000 keys
// per DEL), never a blocking KEYS-style full scan.
func (m *Manager) InvalidateFamily(ctx context.Context, user, tenant, family string) bool {
	pattern := buildKey(user, tenant, family, "") + "*"

	keys, err := m.scanAll(ctx, pattern)
	if err != nil {
		return false
	}
	if len(keys) == 0 {
		return true
	}

	const batchSize = 1000
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := m.rdb.Del(ctx, keys[i:end]...).Err(); err != nil {
			return false
		}
	}
	return true
}

func (m *Manager) scanAll(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := m.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// Stats reports the cache footprint for (user, tenant) across every
// family, scanning with the same cursor discipline as InvalidateFamily.
func (m *Manager) Stats(ctx context.Context, user, tenant string) (Stats, error) {
	pattern := fmt.Sprintf("cache:%s:%s:*", user, tenant)

	keys, err := m.scanAll(ctx, pattern)
	if err != nil {
		return Stats{}, fmt.Errorf("scanning cache keys: %w", err)
	}

	stats := Stats{PerFamilyCount: make(map[string]int)}

	for _, k := range keys {
		raw, err := m.rdb.Get(ctx, k).Result()
		if err != nil {
			continue
		}

		stats.Count++
		stats.Bytes += len(raw)

		parts := strings.SplitN(k, ":", 5)
		family := "unknown"
		if len(parts) > 3 {
			family = parts[3]
		}
		stats.PerFamilyCount[family]++

		var env Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			continue
		}
		if stats.Oldest == nil || env.CachedAt.Before(*stats.Oldest) {
			t := env.CachedAt
			stats.Oldest = &t
		}
		if stats.Newest == nil || env.CachedAt.After(*stats.Newest) {
			t := env.CachedAt
			stats.Newest = &t
		}
	}

	return stats, nil
}
