// Package pipeline provides the chart pipeline shared by the CLI and the
// HTTP server.
//
// # Architecture
//
// The pipeline has two stages:
//
//  1. Generate: simulate one geometric Brownian motion path per curve
//  2. Render: map the paths to curves and write the requested formats
//     (SVG, JSON, PNG, raw path data)
//
// Seeded runs are deterministic, so both stages are cached when a seed is
// set. Unseeded runs are random by definition and always recomputed.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Curves = 3
//	opts.Seed = 42
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"slices"
	"strings"
	"time"

	"github.com/factorial/trendline/pkg/cache"
	"github.com/factorial/trendline/pkg/curve"
	"github.com/factorial/trendline/pkg/errors"
	"github.com/factorial/trendline/pkg/gbm"
	"github.com/factorial/trendline/pkg/motion"
	"github.com/factorial/trendline/pkg/render/sink"
)

// DefaultCurves is the number of curves drawn when none is requested.
const DefaultCurves = 1

// Output limits. Charts beyond them fail with INVALID_INPUT before any
// work is done.
const (
	MaxDimension = 4096      // width and height
	MaxPoints    = 1_000_000 // steps × curves
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatJSON = "json"
	FormatPNG  = "png"
	FormatPath = "path"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatJSON: true,
	FormatPNG:  true,
	FormatPath: true,
}

// Options contains all configuration for one chart.
//
// Zero values in Params and Scale are meaningful (zero steps, zero drift),
// so start from [DefaultOptions] rather than an empty struct.
type Options struct {
	// Generate options
	Params gbm.Params `json:"params"`
	Curves int        `json:"curves,omitempty"`
	Seed   uint64     `json:"seed,omitempty"`

	// Render options
	Scale       curve.Scale      `json:"scale"`
	Formats     []string         `json:"formats,omitempty"`
	Width       float64          `json:"width,omitempty"`
	Height      float64          `json:"height,omitempty"`
	Stroke      string           `json:"stroke,omitempty"`
	StrokeWidth float64          `json:"stroke_width,omitempty"`
	Palette     []string         `json:"palette,omitempty"`
	Animation   motion.Animation `json:"animation"`
	Static      bool             `json:"static,omitempty"`
	ID          string           `json:"id,omitempty"` // SVG root id; derived from the seed when empty

	// Fallback renders an empty chart instead of failing on simulation
	// errors. The replaced error is reported in Result.Fallback.
	Fallback bool `json:"fallback,omitempty"`
	// Refresh skips cache reads; results are still written back.
	Refresh bool `json:"refresh,omitempty"`

	noStore bool
}

// DefaultOptions returns the landing page chart: one curve, default
// simulation, scale, size and animation, rendered as SVG.
func DefaultOptions() Options {
	return Options{
		Params:    gbm.DefaultParams(),
		Curves:    DefaultCurves,
		Scale:     curve.DefaultScale(),
		Formats:   []string{FormatSVG},
		Width:     sink.DefaultWidth,
		Height:    sink.DefaultHeight,
		Animation: motion.DefaultAnimation(),
	}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Series holds the simulated paths, one per curve.
	Series []gbm.Series

	// Curves holds the rendered curve for each series.
	Curves []curve.Descriptor

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Fallback is the simulation error replaced by an empty chart, if any.
	Fallback error

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Curves       int
	Points       int
	GenerateTime time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	Cacheable   bool // Whether the run was seeded and therefore cached
	GenerateHit bool // Whether the series came from cache
	RenderHit   bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, json, png, path)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseFormats splits a comma-separated list such as "svg,json".
// Blank entries are dropped and duplicates collapsed.
func ParseFormats(s string) ([]string, error) {
	var out []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || slices.Contains(out, f) {
			continue
		}
		if err := ValidateFormat(f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// ValidateAndSetDefaults fills unset presentation fields and validates
// everything except the simulation parameters, which the generate stage
// checks so that Fallback can apply to them.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	o.SetRenderDefaults()
	return o.ValidateForRender()
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if o.Curves == 0 {
		o.Curves = DefaultCurves
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Width == 0 {
		o.Width = sink.DefaultWidth
	}
	if o.Height == 0 {
		o.Height = sink.DefaultHeight
	}
	if o.StrokeWidth == 0 {
		o.StrokeWidth = sink.DefaultStrokeWidth
	}
	if o.Animation.Easing == "" {
		o.Animation.Easing = motion.DefaultEasing
	}
}

// ValidateForRender validates the presentation settings.
func (o *Options) ValidateForRender() error {
	if o.Curves < 1 || o.Curves > gbm.MaxCurves {
		return errors.New(errors.ErrCodeInvalidInput, "curves must be between 1 and %d, got %d", gbm.MaxCurves, o.Curves)
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := errors.ValidatePositive("width", o.Width); err != nil {
		return err
	}
	if err := errors.ValidatePositive("height", o.Height); err != nil {
		return err
	}
	if o.Width > MaxDimension || o.Height > MaxDimension {
		return errors.New(errors.ErrCodeInvalidInput, "chart size must be at most %dx%d, got %gx%g", MaxDimension, MaxDimension, o.Width, o.Height)
	}
	if err := o.ValidateSize(MaxPoints); err != nil {
		return err
	}
	if err := errors.ValidatePositive("stroke width", o.StrokeWidth); err != nil {
		return err
	}
	if err := o.Scale.Validate(); err != nil {
		return err
	}
	return o.Animation.Validate()
}

// ValidateSize rejects runs drawing more than maxPoints points in total.
// Curves must already be validated.
func (o *Options) ValidateSize(maxPoints int) error {
	if o.Params.Steps > maxPoints/max(o.Curves, 1) {
		return errors.New(errors.ErrCodeInvalidInput, "%d curves of %d steps exceed the limit of %d points", o.Curves, o.Params.Steps, maxPoints)
	}
	return nil
}

// Cacheable reports whether the run is deterministic.
func (o *Options) Cacheable() bool {
	return o.Seed != 0
}

func (o *Options) readCache() bool  { return o.Cacheable() && !o.Refresh && !o.noStore }
func (o *Options) writeCache() bool { return o.Cacheable() && !o.noStore }

// SeriesKeyOpts returns cache key options for the generate stage.
func (o *Options) SeriesKeyOpts() cache.SeriesKeyOpts {
	return cache.SeriesKeyOpts{
		Steps:        o.Params.Steps,
		InitialValue: o.Params.InitialValue,
		Drift:        o.Params.Drift,
		Volatility:   o.Params.Volatility,
		Dt:           o.Params.Dt,
		Curves:       o.Curves,
		Seed:         o.Seed,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:          format,
		HorizontalScale: o.Scale.HorizontalScale,
		VerticalOffset:  o.Scale.VerticalOffset,
		VerticalScale:   o.Scale.VerticalScale,
		Width:           o.Width,
		Height:          o.Height,
		Stroke:          o.Stroke,
		StrokeWidth:     o.StrokeWidth,
		Palette:         o.Palette,
		DurationMS:      o.Animation.Duration.Milliseconds(),
		FadeDurationMS:  o.Animation.FadeDuration.Milliseconds(),
		Easing:          string(o.Animation.Easing),
		Static:          o.Static,
		ID:              o.ID,
	}
}
