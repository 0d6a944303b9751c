package server

import (
	"net/url"
	"strconv"
	"time"

	"github.com/factorial/trendline/pkg/errors"
	"github.com/factorial/trendline/pkg/motion"
	"github.com/factorial/trendline/pkg/pipeline"
)

// parseQuery applies query parameters to a copy of base. Values that do not
// parse fail with INVALID_INPUT; range checks are left to the pipeline.
func parseQuery(q url.Values, base pipeline.Options) (pipeline.Options, error) {
	opts := base
	opts.Palette = append([]string(nil), base.Palette...)

	ints := []struct {
		name string
		dst  *int
	}{
		{"steps", &opts.Params.Steps},
		{"curves", &opts.Curves},
	}
	for _, p := range ints {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, errors.New(errors.ErrCodeInvalidInput, "%s: not an integer: %q", p.name, v)
			}
			*p.dst = n
		}
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"initial", &opts.Params.InitialValue},
		{"drift", &opts.Params.Drift},
		{"volatility", &opts.Params.Volatility},
		{"dt", &opts.Params.Dt},
		{"width", &opts.Width},
		{"height", &opts.Height},
	}
	for _, p := range floats {
		if v := q.Get(p.name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return opts, errors.New(errors.ErrCodeInvalidInput, "%s: not a number: %q", p.name, v)
			}
			*p.dst = f
		}
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"duration", &opts.Animation.Duration},
		{"fade", &opts.Animation.FadeDuration},
	}
	for _, p := range durations {
		if v := q.Get(p.name); v != "" {
			d, err := parseDuration(v)
			if err != nil {
				return opts, errors.New(errors.ErrCodeInvalidInput, "%s: not a duration: %q", p.name, v)
			}
			*p.dst = d
		}
	}

	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "seed: not an unsigned integer: %q", v)
		}
		opts.Seed = seed
	}
	if v := q.Get("easing"); v != "" {
		e, err := motion.ParseEasing(v)
		if err != nil {
			return opts, err
		}
		opts.Animation.Easing = e
	}
	if v := q.Get("static"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "static: not a boolean: %q", v)
		}
		opts.Static = b
	}
	return opts, nil
}

// parseDuration accepts Go durations ("1.5s") or bare milliseconds ("1500").
func parseDuration(v string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}
