// Package curve maps simulated series onto drawable 2-D coordinates.
//
// The mapping is a fixed affine transform chosen for an SVG viewport whose
// origin is the top-left corner:
//
//	x = index * HorizontalScale
//	y = VerticalOffset - value * VerticalScale
//
// Subtracting from the offset flips the axis so that a rising value is drawn
// higher on the screen. [Render] is pure: the same series and scale always
// give the same [Descriptor].
package curve

import (
	"math"
	"strconv"
	"strings"

	"github.com/factorial/trendline/pkg/errors"
	"github.com/factorial/trendline/pkg/gbm"
)

// Default scale constants, tuned for a 600x200 viewport showing 50 points
// around a value of 100.
const (
	DefaultHorizontalScale = 10.0
	DefaultVerticalOffset  = 100.0
	DefaultVerticalScale   = 0.5
)

// Point is a coordinate in drawing space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scale holds the affine transform constants.
type Scale struct {
	HorizontalScale float64 `json:"horizontal_scale" toml:"horizontal"`
	VerticalOffset  float64 `json:"vertical_offset" toml:"vertical_offset"`
	VerticalScale   float64 `json:"vertical_scale" toml:"vertical"`
}

// DefaultScale returns the landing page transform.
func DefaultScale() Scale {
	return Scale{
		HorizontalScale: DefaultHorizontalScale,
		VerticalOffset:  DefaultVerticalOffset,
		VerticalScale:   DefaultVerticalScale,
	}
}

// Validate rejects non-finite constants.
func (s Scale) Validate() error {
	if err := errors.ValidateFinite("horizontal scale", s.HorizontalScale); err != nil {
		return err
	}
	if err := errors.ValidateFinite("vertical offset", s.VerticalOffset); err != nil {
		return err
	}
	return errors.ValidateFinite("vertical scale", s.VerticalScale)
}

// Apply maps one series point.
func (s Scale) Apply(p gbm.Point) Point {
	return Point{
		X: float64(p.Index) * s.HorizontalScale,
		Y: s.VerticalOffset - p.Value*s.VerticalScale,
	}
}

// Descriptor is an ordered polyline. It has one point per series point.
type Descriptor struct {
	Points []Point `json:"points"`
}

// Render transforms series with scale. An empty series yields an empty
// descriptor.
func Render(series gbm.Series, scale Scale) Descriptor {
	if len(series) == 0 {
		return Descriptor{}
	}
	pts := make([]Point, len(series))
	for i, p := range series {
		pts[i] = scale.Apply(p)
	}
	return Descriptor{Points: pts}
}

// RenderAll renders each series independently.
func RenderAll(series []gbm.Series, scale Scale) []Descriptor {
	out := make([]Descriptor, len(series))
	for i, s := range series {
		out[i] = Render(s, scale)
	}
	return out
}

// RenderAllChecked is RenderAll followed by Validate on every descriptor.
// Finite parameters can still overflow once scaled; such charts fail with
// INVALID_PARAMETER naming the curve and point.
func RenderAllChecked(series []gbm.Series, scale Scale) ([]Descriptor, error) {
	out := RenderAll(series, scale)
	for i, d := range out {
		if err := d.Validate(); err != nil {
			return nil, errors.New(errors.ErrCodeInvalidParameter, "curve %d: %s", i, errors.UserMessage(err))
		}
	}
	return out, nil
}

// Validate requires every coordinate and the total length to be finite.
func (d Descriptor) Validate() error {
	for i, p := range d.Points {
		if !finite(p.X) || !finite(p.Y) {
			return errors.New(errors.ErrCodeInvalidParameter, "point %d is not finite: (%g, %g)", i, p.X, p.Y)
		}
	}
	if l := d.Length(); !finite(l) {
		return errors.New(errors.ErrCodeInvalidParameter, "curve length is not finite: %g", l)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Len returns the number of points.
func (d Descriptor) Len() int { return len(d.Points) }

// Empty reports whether there is nothing to draw.
func (d Descriptor) Empty() bool { return len(d.Points) == 0 }

// Length returns the total polyline length, used as the dash length for
// stroke reveal animations.
func (d Descriptor) Length() float64 {
	var total float64
	for i := 1; i < len(d.Points); i++ {
		a, b := d.Points[i-1], d.Points[i]
		total += math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	return total
}

// Bounds returns the bounding box as (minX, minY, maxX, maxY). All zero for
// an empty descriptor.
func (d Descriptor) Bounds() (minX, minY, maxX, maxY float64) {
	if d.Empty() {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range d.Points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// PathData returns the SVG path "d" attribute: a move to the first point
// followed by line segments. Coordinates use the shortest exact decimal
// representation. Empty descriptors produce "".
func (d Descriptor) PathData() string {
	return d.pathData(-1)
}

// PathDataPrecision is PathData with coordinates rounded to prec decimals.
func (d Descriptor) PathDataPrecision(prec int) string {
	return d.pathData(prec)
}

func (d Descriptor) pathData(prec int) string {
	if d.Empty() {
		return ""
	}
	var b strings.Builder
	for i, p := range d.Points {
		if i == 0 {
			b.WriteString("M ")
		} else {
			b.WriteString(" L ")
		}
		b.WriteString(formatCoord(p.X, prec))
		b.WriteByte(' ')
		b.WriteString(formatCoord(p.Y, prec))
	}
	return b.String()
}

func formatCoord(v float64, prec int) string {
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if prec > 0 {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}
