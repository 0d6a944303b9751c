package gbm

import (
	"github.com/factorial/trendline/pkg/errors"
)

// Default simulation parameters.
const (
	DefaultSteps        = 50
	DefaultInitialValue = 100.0
	DefaultDrift        = 0.05
	DefaultVolatility   = 0.2
	DefaultDt           = 1.0

	// MaxSteps bounds a single path so a typo on the command line or a
	// query string cannot allocate gigabytes.
	MaxSteps = 1_000_000
)

// Params describes one simulation run. A Params value is copied into
// Generate, so later changes by the caller do not affect a running
// simulation.
type Params struct {
	Steps        int     `json:"steps" toml:"steps"`
	InitialValue float64 `json:"initial_value" toml:"initial_value"`
	Drift        float64 `json:"drift" toml:"drift"`
	Volatility   float64 `json:"volatility" toml:"volatility"`
	Dt           float64 `json:"dt" toml:"dt"`
}

// DefaultParams returns the parameters used by the landing page chart.
func DefaultParams() Params {
	return Params{
		Steps:        DefaultSteps,
		InitialValue: DefaultInitialValue,
		Drift:        DefaultDrift,
		Volatility:   DefaultVolatility,
		Dt:           DefaultDt,
	}
}

// Validate reports the first parameter outside its domain.
func (p Params) Validate() error {
	if err := errors.ValidateCount("steps", p.Steps, MaxSteps); err != nil {
		return err
	}
	if err := errors.ValidatePositive("initial value", p.InitialValue); err != nil {
		return err
	}
	if err := errors.ValidateFinite("drift", p.Drift); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative("volatility", p.Volatility); err != nil {
		return err
	}
	return errors.ValidatePositive("time increment", p.Dt)
}
