package sink

import (
	"encoding/json"

	"github.com/factorial/trendline/pkg/curve"
	"github.com/factorial/trendline/pkg/gbm"
	"github.com/factorial/trendline/pkg/motion"
)

// JSONOption configures [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	svg    svgRenderer
	series []gbm.Series
	params *gbm.Params
	scale  *curve.Scale
	seed   uint64
}

// WithJSONSVGOptions applies SVG presentation options (size, colours,
// animation, id) to the JSON document.
func WithJSONSVGOptions(opts ...SVGOption) JSONOption {
	return func(r *jsonRenderer) {
		for _, opt := range opts {
			opt(&r.svg)
		}
	}
}

// WithJSONSeries includes the raw simulated values.
func WithJSONSeries(series []gbm.Series) JSONOption {
	return func(r *jsonRenderer) { r.series = series }
}

// WithJSONParams records the simulation parameters and scale used.
func WithJSONParams(p gbm.Params, s curve.Scale) JSONOption {
	return func(r *jsonRenderer) { r.params, r.scale = &p, &s }
}

// WithJSONSeed records the seed, enabling reproducible re-rendering.
func WithJSONSeed(seed uint64) JSONOption {
	return func(r *jsonRenderer) { r.seed = seed }
}

type jsonOutput struct {
	ID        string        `json:"id"`
	Width     float64       `json:"width"`
	Height    float64       `json:"height"`
	Seed      uint64        `json:"seed,omitempty"`
	Params    *gbm.Params   `json:"params,omitempty"`
	Scale     *curve.Scale  `json:"scale,omitempty"`
	Animation jsonAnimation `json:"animation"`
	Curves    []jsonCurve   `json:"curves"`
}

type jsonAnimation struct {
	DurationMS     int64         `json:"duration_ms"`
	FadeDurationMS int64         `json:"fade_duration_ms"`
	Easing         motion.Easing `json:"easing"`
	CSSEasing      string        `json:"css_easing"`
	Static         bool          `json:"static,omitempty"`
}

type jsonCurve struct {
	Stroke      string        `json:"stroke"`
	StrokeWidth float64       `json:"stroke_width"`
	Path        string        `json:"path"`
	Length      float64       `json:"length"`
	Points      []curve.Point `json:"points"`
	Values      []float64     `json:"values,omitempty"`
}

// RenderJSON renders curves and their presentation settings as JSON.
func RenderJSON(curves []curve.Descriptor, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{svg: newSVGRenderer()}
	for _, opt := range opts {
		opt(&r)
	}

	a := r.svg.animation
	out := jsonOutput{
		ID:     r.svg.id,
		Width:  r.svg.width,
		Height: r.svg.height,
		Seed:   r.seed,
		Params: r.params,
		Scale:  r.scale,
		Animation: jsonAnimation{
			DurationMS:     a.Duration.Milliseconds(),
			FadeDurationMS: a.FadeDuration.Milliseconds(),
			Easing:         a.Easing,
			CSSEasing:      a.Easing.CSS(),
			Static:         r.svg.static,
		},
		Curves: make([]jsonCurve, len(curves)),
	}

	for i, c := range curves {
		jc := jsonCurve{
			Stroke:      r.svg.color(i),
			StrokeWidth: r.svg.strokeWidth,
			Path:        c.PathDataPrecision(r.svg.precision),
			Length:      c.Length(),
			Points:      c.Points,
		}
		if jc.Points == nil {
			jc.Points = []curve.Point{}
		}
		if i < len(r.series) {
			jc.Values = r.series[i].Values()
		}
		out.Curves[i] = jc
	}

	return json.MarshalIndent(out, "", "  ")
}
