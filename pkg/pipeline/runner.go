package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/factorial/trendline/pkg/cache"
	"github.com/factorial/trendline/pkg/curve"
	"github.com/factorial/trendline/pkg/errors"
	"github.com/factorial/trendline/pkg/gbm"
	"github.com/factorial/trendline/pkg/observability"
)

const (
	keyTypeSeries   = "series"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
// The CLI and the server share it so caching behaves the same everywhere.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		TTL:    cache.DefaultTTL,
	}
}

// Execute runs the complete generate → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}
	result.CacheInfo.Cacheable = opts.Cacheable()
	if opts.ID == "" && opts.Cacheable() {
		opts.ID = "trendline-" + cache.Hash([]byte(r.Keyer.SeriesKey(opts.SeriesKeyOpts())))[:8]
	}

	// Stage 1: Generate
	genStart := time.Now()
	series, genHit, err := r.GenerateWithCacheInfo(ctx, opts)
	if err == nil {
		_, err = curve.RenderAllChecked(series, opts.Scale)
	}
	if err != nil {
		if !opts.Fallback || !errors.IsSimulation(err) {
			return nil, err
		}
		r.Logger.Warn("simulation failed, rendering empty chart", "error", err)
		observability.Pipeline().OnFallback(ctx, err)
		result.Fallback = err
		series = emptySeries(opts.Curves)
	}
	result.Series = series
	result.Stats.GenerateTime = time.Since(genStart)
	result.Stats.Curves = len(series)
	for _, s := range series {
		result.Stats.Points += len(s)
	}
	result.CacheInfo.GenerateHit = genHit

	r.Logger.Info("generated curves",
		"curves", result.Stats.Curves,
		"points", result.Stats.Points,
		"cached", genHit,
		"duration", result.Stats.GenerateTime)

	// Stage 2: Render
	renderStart := time.Now()
	if result.Fallback != nil {
		opts.noStore = true
	}
	artifacts, curves, renderHit, err := r.RenderWithCacheInfo(ctx, series, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Curves = curves
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// GenerateWithCacheInfo simulates opts.Curves paths with caching and
// returns cache hit info. Unseeded runs bypass the cache.
func (r *Runner) GenerateWithCacheInfo(ctx context.Context, opts Options) ([]gbm.Series, bool, error) {
	opts.SetRenderDefaults()

	cacheKey := r.Keyer.SeriesKey(opts.SeriesKeyOpts())

	if opts.readCache() {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var series []gbm.Series
			if err := json.Unmarshal(data, &series); err == nil && validCached(series, opts) {
				observability.Cache().OnCacheHit(ctx, keyTypeSeries)
				return series, true, nil
			}
		} else if err != nil {
			r.Logger.Warn("cache read failed", "key", cacheKey, "error", err)
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeSeries)
	}

	observability.Pipeline().OnGenerateStart(ctx, opts.Curves, opts.Params.Steps)
	start := time.Now()
	series, err := gbm.GenerateN(ctx, opts.Params, opts.Curves, opts.Seed)
	observability.Pipeline().OnGenerateComplete(ctx, opts.Curves, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if opts.writeCache() {
		if data, err := json.Marshal(series); err == nil {
			r.store(ctx, keyTypeSeries, cacheKey, data)
		}
	}
	return series, false, nil
}

// validCached reports whether a cached series set has the shape opts asks for.
func validCached(series []gbm.Series, opts Options) bool {
	if len(series) != opts.Curves {
		return false
	}
	for _, s := range series {
		if len(s) != opts.Params.Steps {
			return false
		}
	}
	return true
}

// Generate is a convenience wrapper that calls GenerateWithCacheInfo and discards the cache hit info.
func (r *Runner) Generate(ctx context.Context, opts Options) ([]gbm.Series, error) {
	series, _, err := r.GenerateWithCacheInfo(ctx, opts)
	return series, err
}

// RenderWithCacheInfo renders artifacts with caching and returns cache hit info.
// The curves are always computed since they are cheap and callers such as
// the preview need them.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, series []gbm.Series, opts Options) (map[string][]byte, []curve.Descriptor, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, nil, false, err
	}

	seriesKey := r.Keyer.SeriesKey(opts.SeriesKeyOpts())

	if opts.readCache() {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(seriesKey, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)
				break
			}
			observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, curve.RenderAll(series, opts.Scale), true, nil
		}
	}

	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	artifacts, curves, err := Render(series, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, nil, false, err
	}

	if opts.writeCache() {
		for format, data := range artifacts {
			r.store(ctx, keyTypeArtifact, r.Keyer.ArtifactKey(seriesKey, opts.ArtifactKeyOpts(format)), data)
		}
	}
	return artifacts, curves, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) store(ctx context.Context, keyType, key string, data []byte) {
	if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}
