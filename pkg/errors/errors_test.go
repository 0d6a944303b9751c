package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidParameter, "test message: %s", "value")

	if err.Code != ErrCodeInvalidParameter {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidParameter)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_PARAMETER: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeCacheBackend, cause, "redis get")

	if err.Code != ErrCodeCacheBackend {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeCacheBackend)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	expected := "CACHE_BACKEND: redis get: connection refused"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeDegenerateDraw, "test"),
			code:     ErrCodeDegenerateDraw,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidParameter,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeInternal, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeInternal,
			expected: true,
		},
		{
			name:     "fmt wrapped",
			err:      fmtWrap(New(ErrCodeInvalidParameter, "inner")),
			code:     ErrCodeInvalidParameter,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func fmtWrap(err error) error {
	return &wrapper{err}
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "generate: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeInvalidFormat, "test"), ErrCodeInvalidFormat},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Error type", New(ErrCodeInvalidInput, "friendly message"), "friendly message"},
		{"plain error", errors.New("plain error"), "plain error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsSimulation(t *testing.T) {
	if !IsSimulation(New(ErrCodeInvalidParameter, "x")) {
		t.Error("InvalidParameter should be a simulation error")
	}
	if !IsSimulation(New(ErrCodeDegenerateDraw, "x")) {
		t.Error("DegenerateDraw should be a simulation error")
	}
	if IsSimulation(New(ErrCodeCacheBackend, "x")) {
		t.Error("CacheBackend should not be a simulation error")
	}
	if IsSimulation(nil) {
		t.Error("nil should not be a simulation error")
	}
}
