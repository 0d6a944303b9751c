// Package gbm generates discretized geometric Brownian motion paths.
//
// # Overview
//
// A path starts at an initial value S0 and evolves by multiplicative,
// log-normally distributed updates:
//
//	S(i+1) = S(i) * exp((mu - sigma²/2) * dt + sigma * sqrt(dt) * z)
//
// where z is a standard normal sample obtained from two uniform draws with
// the Box-Muller transform. Because every update is a strictly positive
// factor, values stay strictly positive for any finite parameters.
//
// The paths are decorative: they feed the animated line chart on the
// landing page and carry no financial meaning.
//
// # Usage
//
//	s, err := gbm.Generate(gbm.DefaultParams(), gbm.NewSource(42))
//	if err != nil {
//	    return err
//	}
//	for _, p := range s {
//	    fmt.Println(p.Index, p.Value)
//	}
//
// Several independent paths, one random stream each:
//
//	paths, err := gbm.GenerateN(ctx, gbm.DefaultParams(), 5, 0)
//
// # Series Shape
//
// A series has exactly [Params.Steps] points. Point 0 carries the initial
// value and point i the value after i updates, so with zero volatility
// value i equals S0 * exp(mu * dt * i). Zero steps yield an empty series,
// which callers treat as "nothing to draw".
//
// # Errors
//
// Non-finite or out-of-domain parameters fail with INVALID_PARAMETER before
// any draw happens. A uniform source that keeps producing 0 (which would make
// ln(u) undefined) fails with DEGENERATE_DRAW. NaN and ±Inf never leave this
// package.
package gbm
