package sink

import (
	"bytes"
	"image"
	"image/png"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/factorial/trendline/pkg/errors"
	"github.com/factorial/trendline/pkg/gbm"
)

// MaxPNGSize bounds each side of a raster image.
const MaxPNGSize = 4096

// PNGOption configures [RenderPNG].
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	svg svgRenderer
}

// WithPNGSVGOptions reuses SVG presentation options (size, colours).
// Animation settings are ignored.
func WithPNGSVGOptions(opts ...SVGOption) PNGOption {
	return func(r *pngRenderer) {
		for _, opt := range opts {
			opt(&r.svg)
		}
	}
}

// RenderPNG draws the series as a static line chart. Series with fewer than
// two points cannot form a line; if none can, the result is a blank image of
// the requested size.
func RenderPNG(series []gbm.Series, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{svg: newSVGRenderer()}
	for _, opt := range opts {
		opt(&r)
	}
	if !(r.svg.width >= 1 && r.svg.width <= MaxPNGSize && r.svg.height >= 1 && r.svg.height <= MaxPNGSize) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "png size must be between 1x1 and %dx%d, got %gx%g",
			MaxPNGSize, MaxPNGSize, r.svg.width, r.svg.height)
	}
	w, h := int(r.svg.width), int(r.svg.height)

	var lines []chart.Series
	maxX := 0.0
	lo, hi := 0.0, 0.0
	first := true
	for i, s := range series {
		if len(s) < 2 {
			continue
		}
		for _, v := range s.Values() {
			if first {
				lo, hi, first = v, v, false
			}
			lo, hi = min(lo, v), max(hi, v)
		}
		maxX = max(maxX, float64(len(s)-1))
		lines = append(lines, chart.ContinuousSeries{
			XValues: s.Indices(),
			YValues: s.Values(),
			Style: chart.Style{
				StrokeWidth: r.svg.strokeWidth,
				StrokeColor: hexColor(r.svg.color(i)),
			},
		})
	}
	if len(lines) == 0 {
		return blankPNG(w, h)
	}

	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = max(1, hi*0.05)
	}

	ch := chart.Chart{
		Width:      w,
		Height:     h,
		Background: chart.Style{Padding: chart.Box{Top: 10, Left: 10, Right: 10, Bottom: 10}},
		XAxis:      chart.XAxis{Range: &chart.ContinuousRange{Min: 0, Max: maxX}},
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}},
		Series:     lines,
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func hexColor(s string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
}

func blankPNG(w, h int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
