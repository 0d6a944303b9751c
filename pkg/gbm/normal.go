package gbm

import (
	"math"
	"math/rand/v2"

	"github.com/factorial/trendline/pkg/errors"
)

// maxRedraws is how many consecutive unusable uniform draws are tolerated
// before a source is declared degenerate. A healthy source returns 0 with
// probability 2^-53 per draw.
const maxRedraws = 64

// Source yields uniform samples in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// NewSource returns a reproducible source for seed. It is the same stream
// GenerateN uses for curve 0 of that seed.
func NewSource(seed uint64) *rand.Rand {
	return streamSource(seed, 0)
}

// NewRandomSource returns a source seeded from the runtime's entropy.
func NewRandomSource() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// streamSource returns the source for curve i of a seeded run. Both PCG
// words are derived from (seed, i) through splitmix64, so neighbouring
// curves start from unrelated states.
func streamSource(seed uint64, i int) *rand.Rand {
	hi := mix64(seed + uint64(i)*golden)
	lo := mix64(hi ^ 0xda942042e4dd58b5)
	return rand.New(rand.NewPCG(hi, lo))
}

const golden = 0x9e3779b97f4a7c15

// mix64 is the splitmix64 finaliser.
func mix64(x uint64) uint64 {
	x += golden
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// uniform draws from src, redrawing values outside the open interval (0, 1).
func uniform(src Source) (float64, error) {
	for range maxRedraws {
		if u := src.Float64(); u > 0 && u < 1 {
			return u, nil
		}
	}
	return 0, errors.New(errors.ErrCodeDegenerateDraw,
		"uniform source produced %d consecutive draws outside (0, 1)", maxRedraws)
}

// StandardNormal returns one N(0, 1) sample using the Box-Muller transform
// z = sqrt(-2 ln u1) * cos(2π u2).
func StandardNormal(src Source) (float64, error) {
	u1, err := uniform(src)
	if err != nil {
		return 0, err
	}
	u2, err := uniform(src)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2), nil
}
