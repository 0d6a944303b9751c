package gbm

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/factorial/trendline/pkg/errors"
)

// MaxCurves bounds GenerateN.
const MaxCurves = 64

// GenerateN simulates n independent paths with the same parameters.
//
// With seed == 0 every path draws from its own entropy-seeded source. With a
// non-zero seed the paths are reproducible: path i always uses stream i of
// that seed, and path 0 equals Generate(p, NewSource(seed)). Paths are
// computed concurrently; they share no state.
func GenerateN(ctx context.Context, p Params, n int, seed uint64) ([]Series, error) {
	if err := validateCurves(n); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out := make([]Series, n)
	g, ctx := errgroup.WithContext(ctx)
	for i := range n {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var src Source
			if seed == 0 {
				src = NewRandomSource()
			} else {
				src = streamSource(seed, i)
			}
			s, err := Generate(p, src)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func validateCurves(n int) error {
	if n < 1 || n > MaxCurves {
		return errors.New(errors.ErrCodeInvalidParameter, "curves must be between 1 and %d, got %d", MaxCurves, n)
	}
	return nil
}
