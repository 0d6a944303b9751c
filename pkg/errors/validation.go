package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateFinite rejects NaN and ±Inf.
func ValidateFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidParameter, "%s must be finite, got %g", name, v)
	}
	return nil
}

// ValidatePositive requires a finite value strictly greater than zero.
func ValidatePositive(name string, v float64) error {
	if err := ValidateFinite(name, v); err != nil {
		return err
	}
	if v <= 0 {
		return New(ErrCodeInvalidParameter, "%s must be > 0, got %g", name, v)
	}
	return nil
}

// ValidateNonNegative requires a finite value greater than or equal to zero.
func ValidateNonNegative(name string, v float64) error {
	if err := ValidateFinite(name, v); err != nil {
		return err
	}
	if v < 0 {
		return New(ErrCodeInvalidParameter, "%s must be >= 0, got %g", name, v)
	}
	return nil
}

// ValidateCount requires an integer in [0, max]. A max of zero or less
// disables the upper bound.
func ValidateCount(name string, n, max int) error {
	if n < 0 {
		return New(ErrCodeInvalidParameter, "%s must be >= 0, got %d", name, n)
	}
	if max > 0 && n > max {
		return New(ErrCodeInvalidParameter, "%s must be <= %d, got %d", name, max, n)
	}
	return nil
}

// ValidateOutputPath validates a user supplied output path for the CLI.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasSuffix(path, "/") {
		return New(ErrCodeInvalidPath, "path must name a file, not a directory")
	}

	return nil
}
