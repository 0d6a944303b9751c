package pipeline

import (
	"strings"

	"github.com/factorial/trendline/pkg/curve"
	"github.com/factorial/trendline/pkg/errors"
	"github.com/factorial/trendline/pkg/gbm"
	"github.com/factorial/trendline/pkg/render/sink"
)

// Render writes the requested formats for already generated series.
// Curves are mapped from series with opts.Scale; a curve whose scaled
// coordinates overflow fails with INVALID_PARAMETER before anything is
// written.
func Render(series []gbm.Series, opts Options) (map[string][]byte, []curve.Descriptor, error) {
	curves, err := curve.RenderAllChecked(series, opts.Scale)
	if err != nil {
		return nil, nil, err
	}
	svgOpts := buildSVGOptions(opts)
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = sink.RenderSVG(curves, svgOpts...)
		case FormatJSON:
			data, err = sink.RenderJSON(curves,
				sink.WithJSONSVGOptions(svgOpts...),
				sink.WithJSONSeries(series),
				sink.WithJSONParams(opts.Params, opts.Scale),
				sink.WithJSONSeed(opts.Seed))
		case FormatPNG:
			data, err = sink.RenderPNG(series, sink.WithPNGSVGOptions(svgOpts...))
		case FormatPath:
			data = renderPathData(curves)
		default:
			return nil, nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format: %s", format)
		}

		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", format)
		}
		artifacts[format] = data
	}

	return artifacts, curves, nil
}

// renderPathData writes one path `d` attribute per line.
func renderPathData(curves []curve.Descriptor) []byte {
	var b strings.Builder
	for _, c := range curves {
		b.WriteString(c.PathData())
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// buildSVGOptions builds SVG presentation options. Multi-curve charts
// without an explicit stroke cycle through the default palette.
func buildSVGOptions(opts Options) []sink.SVGOption {
	stroke := opts.Stroke
	if stroke == "" {
		stroke = sink.DefaultStroke
	}

	svgOpts := []sink.SVGOption{
		sink.WithSize(opts.Width, opts.Height),
		sink.WithStroke(stroke, opts.StrokeWidth),
		sink.WithAnimation(opts.Animation),
	}

	switch {
	case len(opts.Palette) > 0:
		svgOpts = append(svgOpts, sink.WithPalette(opts.Palette))
	case opts.Stroke == "" && opts.Curves > 1:
		svgOpts = append(svgOpts, sink.WithPalette(sink.DefaultPalette))
	}

	if opts.Static {
		svgOpts = append(svgOpts, sink.WithStatic())
	}
	if opts.ID != "" {
		svgOpts = append(svgOpts, sink.WithID(opts.ID))
	}
	return svgOpts
}

// emptySeries returns n empty series, the input of an empty chart.
func emptySeries(n int) []gbm.Series {
	out := make([]gbm.Series, n)
	for i := range out {
		out[i] = gbm.Series{}
	}
	return out
}
