// Package cache stores rendered chart artifacts.
//
// Only reproducible work is cached: a chart generated from an explicit seed
// always yields the same bytes, so the pipeline keys it by a hash of every
// option that influences the output. Unseeded charts are random by design
// and bypass the cache entirely.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under the user cache directory (CLI)
//   - [RedisCache]: shared cache for several server instances
//   - [NullCache]: caching disabled
//
// # Keys
//
// A [Keyer] turns options into keys. [DefaultKeyer] hashes the options with
// SHA-256; [ScopedKeyer] prefixes keys, e.g. per deployment environment.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// DefaultTTL is how long artifacts stay cached when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value and true on a hit, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys.
type Keyer interface {
	// SeriesKey identifies a set of generated series.
	SeriesKey(opts SeriesKeyOpts) string

	// ArtifactKey identifies one rendered output of a series set.
	ArtifactKey(seriesHash string, opts ArtifactKeyOpts) string
}

// SeriesKeyOpts lists everything that determines generated series.
type SeriesKeyOpts struct {
	Steps        int     `json:"steps"`
	InitialValue float64 `json:"initial_value"`
	Drift        float64 `json:"drift"`
	Volatility   float64 `json:"volatility"`
	Dt           float64 `json:"dt"`
	Curves       int     `json:"curves"`
	Seed         uint64  `json:"seed"`
}

// ArtifactKeyOpts lists everything that determines a rendered artifact.
type ArtifactKeyOpts struct {
	Format          string   `json:"format"`
	HorizontalScale float64  `json:"horizontal_scale"`
	VerticalOffset  float64  `json:"vertical_offset"`
	VerticalScale   float64  `json:"vertical_scale"`
	Width           float64  `json:"width"`
	Height          float64  `json:"height"`
	Stroke          string   `json:"stroke,omitempty"`
	StrokeWidth     float64  `json:"stroke_width"`
	Palette         []string `json:"palette,omitempty"`
	DurationMS      int64    `json:"duration_ms"`
	FadeDurationMS  int64    `json:"fade_duration_ms"`
	Easing          string   `json:"easing"`
	Static          bool     `json:"static,omitempty"`
	ID              string   `json:"id,omitempty"`
}

// DefaultKeyer hashes key options into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SeriesKey returns "chart:series:<sha256>".
func (DefaultKeyer) SeriesKey(opts SeriesKeyOpts) string {
	return hashKey("chart:series", opts)
}

// ArtifactKey returns "chart:artifact:<format>:<sha256>".
func (DefaultKeyer) ArtifactKey(seriesHash string, opts ArtifactKeyOpts) string {
	return hashKey("chart:artifact:"+opts.Format, seriesHash, opts)
}

// hashKey returns prefix:sha256(json(parts)).
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NullCache stores nothing. Every Get misses.
type NullCache struct{}

// NewNullCache returns a cache with caching disabled.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error { return nil }
func (NullCache) Close() error { return nil }
