package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/factorial/trendline/pkg/gbm"
	"github.com/factorial/trendline/pkg/motion"
	"github.com/factorial/trendline/pkg/pipeline"
	"github.com/factorial/trendline/pkg/render/sink"
)

// chartFlags holds the chart flags shared by render and preview.
// Only flags set on the command line override config file values.
type chartFlags struct {
	steps       int
	initial     float64
	drift       float64
	volatility  float64
	dt          float64
	curves      int
	seed        uint64
	width       float64
	height      float64
	stroke      string
	strokeWidth float64
	duration    time.Duration
	fade        time.Duration
	easing      string
	static      bool
}

// register adds the chart flags to cmd, showing built-in defaults.
func (f *chartFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.steps, "steps", gbm.DefaultSteps, "number of points per curve")
	fs.Float64Var(&f.initial, "initial", gbm.DefaultInitialValue, "starting value")
	fs.Float64Var(&f.drift, "drift", gbm.DefaultDrift, "drift rate per unit time")
	fs.Float64Var(&f.volatility, "volatility", gbm.DefaultVolatility, "volatility per sqrt unit time")
	fs.Float64Var(&f.dt, "dt", gbm.DefaultDt, "time increment per step")
	fs.IntVarP(&f.curves, "curves", "n", pipeline.DefaultCurves, "number of curves")
	fs.Uint64Var(&f.seed, "seed", 0, "random seed; 0 draws a fresh chart every run")
	fs.Float64Var(&f.width, "width", sink.DefaultWidth, "chart width")
	fs.Float64Var(&f.height, "height", sink.DefaultHeight, "chart height")
	fs.StringVar(&f.stroke, "stroke", "", "stroke colour for every curve (default palette)")
	fs.Float64Var(&f.strokeWidth, "stroke-width", sink.DefaultStrokeWidth, "stroke width")
	fs.DurationVar(&f.duration, "duration", motion.DefaultDuration, "reveal duration")
	fs.DurationVar(&f.fade, "fade", motion.DefaultFadeDuration, "fade-in duration")
	fs.StringVar(&f.easing, "easing", string(motion.DefaultEasing), "reveal easing: linear, easeIn, easeOut, easeInOut")
	fs.BoolVar(&f.static, "static", false, "disable animation")
}

// apply overrides opts with every flag the user set.
func (f *chartFlags) apply(cmd *cobra.Command, opts *pipeline.Options) error {
	changed := cmd.Flags().Changed

	if changed("steps") {
		opts.Params.Steps = f.steps
	}
	if changed("initial") {
		opts.Params.InitialValue = f.initial
	}
	if changed("drift") {
		opts.Params.Drift = f.drift
	}
	if changed("volatility") {
		opts.Params.Volatility = f.volatility
	}
	if changed("dt") {
		opts.Params.Dt = f.dt
	}
	if changed("curves") {
		opts.Curves = f.curves
	}
	if changed("seed") {
		opts.Seed = f.seed
	}
	if changed("width") {
		opts.Width = f.width
	}
	if changed("height") {
		opts.Height = f.height
	}
	if changed("stroke") {
		opts.Stroke = f.stroke
	}
	if changed("stroke-width") {
		opts.StrokeWidth = f.strokeWidth
	}
	if changed("duration") {
		opts.Animation.Duration = f.duration
	}
	if changed("fade") {
		opts.Animation.FadeDuration = f.fade
	}
	if changed("easing") {
		e, err := motion.ParseEasing(f.easing)
		if err != nil {
			return err
		}
		opts.Animation.Easing = e
	}
	if changed("static") {
		opts.Static = f.static
	}
	return nil
}
