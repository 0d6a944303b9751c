package gbm

import (
	"math"

	"github.com/factorial/trendline/pkg/errors"
)

// Point is one sample of a simulated path.
type Point struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// Series is an ordered path. Indices run 0..len-1 without gaps.
type Series []Point

// Values returns the sampled values in index order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Indices returns the indices as floats, convenient for charting libraries.
func (s Series) Indices() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = float64(p.Index)
	}
	return out
}

// Last returns the final value, or false for an empty series.
func (s Series) Last() (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1].Value, true
}

// Generate simulates one path of p.Steps points using src for randomness.
// A nil src is replaced by a freshly seeded one.
func Generate(p Params, src Source) (Series, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Steps == 0 {
		return Series{}, nil
	}
	if src == nil {
		src = NewRandomSource()
	}

	drift := (p.Drift - 0.5*p.Volatility*p.Volatility) * p.Dt
	diffusion := p.Volatility * math.Sqrt(p.Dt)

	series := make(Series, p.Steps)
	s := p.InitialValue
	series[0] = Point{Index: 0, Value: s}

	for i := 1; i < p.Steps; i++ {
		var z float64
		if diffusion > 0 {
			var err error
			if z, err = StandardNormal(src); err != nil {
				return nil, err
			}
		}
		s *= math.Exp(drift + diffusion*z)
		if math.IsInf(s, 0) || math.IsNaN(s) || s <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidParameter,
				"value left the representable range at step %d", i)
		}
		series[i] = Point{Index: i, Value: s}
	}
	return series, nil
}
