// Package motion describes the reveal animation applied to rendered curves.
//
// The values here are pass-through configuration: the SVG sink turns them
// into CSS keyframes and the terminal preview evaluates them frame by frame.
// Nothing in the path generator depends on them.
package motion

import (
	"fmt"
	"math"
	"time"

	"github.com/factorial/trendline/pkg/errors"
)

// Default animation timings.
const (
	DefaultDuration     = 4 * time.Second
	DefaultFadeDuration = 1 * time.Second
	DefaultEasing       = EaseInOut
)

// Easing names a timing function. The names match the vocabulary used by
// the landing page front-end.
type Easing string

// Supported easings.
const (
	Linear    Easing = "linear"
	EaseIn    Easing = "easeIn"
	EaseOut   Easing = "easeOut"
	EaseInOut Easing = "easeInOut"
)

// bezier holds the two inner control points of a CSS cubic-bezier curve.
type bezier struct{ x1, y1, x2, y2 float64 }

var easings = map[Easing]bezier{
	Linear:    {0, 0, 1, 1},
	EaseIn:    {0.42, 0, 1, 1},
	EaseOut:   {0, 0, 0.58, 1},
	EaseInOut: {0.42, 0, 0.58, 1},
}

// Easings lists the supported names in a stable order.
func Easings() []Easing {
	return []Easing{Linear, EaseIn, EaseOut, EaseInOut}
}

// ParseEasing validates a name.
func ParseEasing(s string) (Easing, error) {
	e := Easing(s)
	if _, ok := easings[e]; !ok {
		return "", errors.New(errors.ErrCodeInvalidEasing,
			"invalid easing: %q (must be one of: linear, easeIn, easeOut, easeInOut)", s)
	}
	return e, nil
}

// CSS returns the CSS timing function.
func (e Easing) CSS() string {
	b, ok := easings[e]
	if !ok {
		b = easings[DefaultEasing]
	}
	if e == Linear {
		return "linear"
	}
	return fmt.Sprintf("cubic-bezier(%g, %g, %g, %g)", b.x1, b.y1, b.x2, b.y2)
}

// Ease maps linear progress t in [0, 1] to eased progress. Inputs outside
// the range are clamped. Unknown easings behave like the default.
func (e Easing) Ease(t float64) float64 {
	t = max(0, min(t, 1))
	b, ok := easings[e]
	if !ok {
		b = easings[DefaultEasing]
	}
	if e == Linear || t == 0 || t == 1 {
		return t
	}
	return b.y(b.solve(t))
}

func (b bezier) x(s float64) float64 { return cubic(b.x1, b.x2, s) }
func (b bezier) y(s float64) float64 { return cubic(b.y1, b.y2, s) }

// cubic evaluates a 1-D bezier with endpoints 0 and 1.
func cubic(p1, p2, s float64) float64 {
	u := 1 - s
	return 3*u*u*s*p1 + 3*u*s*s*p2 + s*s*s
}

func cubicDeriv(p1, p2, s float64) float64 {
	u := 1 - s
	return 3*u*u*p1 + 6*u*s*(p2-p1) + 3*s*s*(1-p2)
}

// solve finds s with x(s) == x. Newton first, bisection if it stalls.
func (b bezier) solve(x float64) float64 {
	const eps = 1e-9
	s := x
	for range 8 {
		dx := b.x(s) - x
		if math.Abs(dx) < eps {
			return s
		}
		d := cubicDeriv(b.x1, b.x2, s)
		if math.Abs(d) < 1e-6 {
			break
		}
		s -= dx / d
	}

	lo, hi := 0.0, 1.0
	s = x
	for range 64 {
		v := b.x(s)
		if math.Abs(v-x) < eps {
			break
		}
		if v < x {
			lo = s
		} else {
			hi = s
		}
		s = (lo + hi) / 2
	}
	return s
}

// Animation configures the chart's entrance: the whole chart fades in over
// FadeDuration while each curve is drawn from start to end over Duration.
type Animation struct {
	Duration     time.Duration `json:"duration"`
	FadeDuration time.Duration `json:"fade_duration"`
	Easing       Easing        `json:"easing"`
}

// DefaultAnimation returns the landing page timings.
func DefaultAnimation() Animation {
	return Animation{
		Duration:     DefaultDuration,
		FadeDuration: DefaultFadeDuration,
		Easing:       DefaultEasing,
	}
}

// Validate checks durations and the easing name.
func (a Animation) Validate() error {
	if a.Duration < 0 || a.FadeDuration < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "animation durations must be >= 0")
	}
	_, err := ParseEasing(string(a.Easing))
	return err
}

// Progress returns the eased fraction of the curve revealed after elapsed.
// A zero Duration reveals everything immediately.
func (a Animation) Progress(elapsed time.Duration) float64 {
	if a.Duration <= 0 || elapsed >= a.Duration {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return a.Easing.Ease(float64(elapsed) / float64(a.Duration))
}

// Done reports whether the reveal has finished.
func (a Animation) Done(elapsed time.Duration) bool {
	return elapsed >= a.Duration
}
