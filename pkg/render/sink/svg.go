package sink

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/factorial/trendline/pkg/curve"
	"github.com/factorial/trendline/pkg/motion"
)

// Default presentation values.
const (
	DefaultWidth       = 600.0
	DefaultHeight      = 200.0
	DefaultStroke      = "#ec4899"
	DefaultStrokeWidth = 2.0
	DefaultPrecision   = 2
)

// DefaultPalette colours additional curves of a multi-curve chart. The first
// entry matches DefaultStroke.
var DefaultPalette = []string{"#ec4899", "#8b5cf6", "#3b82f6", "#14b8a6", "#f59e0b"}

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	id          string
	width       float64
	height      float64
	stroke      string
	strokeWidth float64
	palette     []string
	animation   motion.Animation
	static      bool
	precision   int
}

// WithID sets the root element id used to scope styles.
func WithID(id string) SVGOption { return func(r *svgRenderer) { r.id = id } }

// WithSize sets the viewport size.
func WithSize(w, h float64) SVGOption {
	return func(r *svgRenderer) { r.width, r.height = w, h }
}

// WithStroke sets the colour and width used for every curve. It clears any
// palette.
func WithStroke(color string, width float64) SVGOption {
	return func(r *svgRenderer) { r.stroke, r.strokeWidth, r.palette = color, width, nil }
}

// WithPalette cycles colours across curves.
func WithPalette(colors []string) SVGOption {
	return func(r *svgRenderer) { r.palette = colors }
}

// WithAnimation sets the reveal timings.
func WithAnimation(a motion.Animation) SVGOption {
	return func(r *svgRenderer) { r.animation = a }
}

// WithStatic disables all animation.
func WithStatic() SVGOption { return func(r *svgRenderer) { r.static = true } }

// WithPrecision sets the number of decimals in path data. Negative values
// keep full precision.
func WithPrecision(p int) SVGOption { return func(r *svgRenderer) { r.precision = p } }

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	r := svgRenderer{
		width:       DefaultWidth,
		height:      DefaultHeight,
		stroke:      DefaultStroke,
		strokeWidth: DefaultStrokeWidth,
		animation:   motion.DefaultAnimation(),
		precision:   DefaultPrecision,
	}
	for _, opt := range opts {
		opt(&r)
	}
	if r.id == "" {
		r.id = NewID()
	}
	return r
}

// NewID returns a fresh element id.
func NewID() string {
	return "trendline-" + uuid.NewString()[:8]
}

// RenderSVG renders curves as a single SVG document.
func RenderSVG(curves []curve.Descriptor, opts ...SVGOption) []byte {
	r := newSVGRenderer(opts...)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" id="%s" class="trendline" viewBox="0 0 %s %s" width="%s" height="%s">`+"\n",
		r.id, num(r.width), num(r.height), num(r.width), num(r.height))

	drawn := 0
	for _, c := range curves {
		if !c.Empty() {
			drawn++
		}
	}
	if drawn > 0 && !r.static {
		renderStyle(&buf, &r)
	}

	for i, c := range curves {
		if c.Empty() {
			continue
		}
		renderPath(&buf, &r, i, c)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *svgRenderer) color(i int) string {
	if len(r.palette) > 0 {
		return r.palette[i%len(r.palette)]
	}
	return r.stroke
}

func renderStyle(buf *bytes.Buffer, r *svgRenderer) {
	a := r.animation
	buf.WriteString("  <style>\n")
	fmt.Fprintf(buf, "    @keyframes %s-fade { from { opacity: 0; } to { opacity: 1; } }\n", r.id)
	fmt.Fprintf(buf, "    @keyframes %s-draw { to { stroke-dashoffset: 0; } }\n", r.id)
	fmt.Fprintf(buf, "    #%s { animation: %s-fade %s linear both; }\n", r.id, r.id, seconds(a.FadeDuration))
	fmt.Fprintf(buf, "    #%s .curve { animation: %s-draw %s %s forwards; }\n", r.id, r.id, seconds(a.Duration), a.Easing.CSS())
	fmt.Fprintf(buf, "    @media (prefers-reduced-motion: reduce) { #%s, #%s .curve { animation: none; stroke-dashoffset: 0; } }\n", r.id, r.id)
	buf.WriteString("  </style>\n")
}

func renderPath(buf *bytes.Buffer, r *svgRenderer, i int, c curve.Descriptor) {
	fmt.Fprintf(buf, `  <path class="curve" id="%s-curve-%d" d="%s" stroke="%s" stroke-width="%s" fill="none" stroke-linecap="round" stroke-linejoin="round"`,
		r.id, i, c.PathDataPrecision(r.precision), r.color(i), num(r.strokeWidth))
	if !r.static {
		// Round up so the dash always covers the whole path.
		l := strconv.FormatFloat(c.Length()+1, 'f', 0, 64)
		fmt.Fprintf(buf, ` stroke-dasharray="%s" stroke-dashoffset="%s"`, l, l)
	}
	buf.WriteString("/>\n")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}
