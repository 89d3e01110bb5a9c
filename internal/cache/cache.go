// Package cache implements the cache-aside store used to avoid repeated
// upstream lookups within a time-to-live window.
//
// An Aside wraps a Backend (in-memory LRU, PostgreSQL, or SQLite) and a
// producer function: a live entry is returned as-is, anything missing or
// expired is produced, stored with a fresh expiry, and returned. Expiry is
// lazy; backends never need a sweep to stay correct.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/helixir/paper-discovery-service/internal/observability"
)

// Entry is a stored value with its absolute expiry time.
type Entry struct {
	Value     []byte
	ExpiresAt time.Time
}

// Expired reports whether the entry is no longer live at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Backend is a key/value store for cache entries. Writes to the same key
// are last-write-wins.
type Backend interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
}

// Producer computes the value for a missing key.
type Producer func(ctx context.Context) ([]byte, error)

// Cache is the cache-aside contract consumed by source adapters.
type Cache interface {
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, produce Producer) ([]byte, error)
}

// Option configures an Aside.
type Option func(*Aside)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aside) {
		a.now = now
	}
}

// WithMetrics records hits, misses, and backend errors.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Aside) {
		a.metrics = m
	}
}

// Aside implements Cache over a Backend. It is safe for concurrent use;
// concurrent misses on one key share a single producer call.
type Aside struct {
	backend Backend
	logger  zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time
	group   singleflight.Group
}

// Compile-time check that *Aside implements Cache.
var _ Cache = (*Aside)(nil)

// NewAside creates a cache-aside store over backend.
func NewAside(backend Backend, logger zerolog.Logger, opts ...Option) *Aside {
	a := &Aside{
		backend: backend,
		logger:  logger.With().Str("component", "cache").Logger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetOrFetch returns the live value stored under key, or invokes produce,
// stores its result until now+ttl, and returns it. Producer errors are
// returned unchanged and nothing is stored. Backend failures are logged and
// treated as a miss on read and ignored on write.
func (a *Aside) GetOrFetch(ctx context.Context, key string, ttl time.Duration, produce Producer) ([]byte, error) {
	ns := Namespace(key)

	entry, ok, err := a.backend.Get(ctx, key)
	switch {
	case err != nil:
		a.metrics.RecordCacheError(ns, "get")
		a.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
	case ok && !entry.Expired(a.now()):
		a.metrics.RecordCacheLookup(ns, true)
		return entry.Value, nil
	}
	a.metrics.RecordCacheLookup(ns, false)

	v, err, _ := a.group.Do(key, func() (any, error) {
		value, err := produce(ctx)
		if err != nil {
			return nil, err
		}

		expiresAt := a.now().Add(ttl)
		if err := a.backend.Set(ctx, key, Entry{Value: value, ExpiresAt: expiresAt}); err != nil {
			a.metrics.RecordCacheError(ns, "set")
			a.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// FetchJSON is a typed GetOrFetch: the produced value is stored as JSON and
// decoded on every hit.
func FetchJSON[T any](ctx context.Context, c Cache, key string, ttl time.Duration, produce func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	raw, err := c.GetOrFetch(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := produce(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("decode cached value for %q: %w", key, err)
	}
	return out, nil
}

const keySeparator = "/"

// Key builds a deterministic cache key from a namespace and URL-escaped parts,
// e.g. Key("s2:citation", "doi", "10.1/x") == "s2:citation/doi/10.1%2Fx".
func Key(namespace string, parts ...string) string {
	var sb strings.Builder
	sb.WriteString(namespace)
	for _, p := range parts {
		sb.WriteString(keySeparator)
		sb.WriteString(url.QueryEscape(p))
	}
	return sb.String()
}

// Namespace returns the namespace portion of a key built by Key.
func Namespace(key string) string {
	ns, _, _ := strings.Cut(key, keySeparator)
	return ns
}
