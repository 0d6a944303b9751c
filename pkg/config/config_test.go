package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/factorial/trendline/pkg/errors"
	"github.com/factorial/trendline/pkg/gbm"
	"github.com/factorial/trendline/pkg/motion"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestDecode(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
[simulation]
steps = 120
volatility = 0.35

[chart]
curves = 3
palette = ["#111111", "#222222"]

[animation]
duration = "6s"
easing = "easeOut"

[cache]
backend = "redis"
redis_addr = "cache:6379"
ttl = "1h"
`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if cfg.Simulation.Steps != 120 || cfg.Simulation.Volatility != 0.35 {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Simulation.InitialValue != gbm.DefaultInitialValue {
		t.Errorf("unset keys should keep defaults, initial_value = %v", cfg.Simulation.InitialValue)
	}
	if cfg.Chart.Curves != 3 || len(cfg.Chart.Palette) != 2 {
		t.Errorf("chart = %+v", cfg.Chart)
	}
	if cfg.Animation.Duration.Duration != 6*time.Second || cfg.Animation.Easing != "easeOut" {
		t.Errorf("animation = %+v", cfg.Animation)
	}
	if cfg.Animation.FadeDuration.Duration != motion.DefaultFadeDuration {
		t.Errorf("fade duration = %v", cfg.Animation.FadeDuration)
	}
	if cfg.Cache.Backend != BackendRedis || cfg.Cache.RedisAddr != "cache:6379" || cfg.Cache.TTL.Duration != time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"syntax", `[simulation`},
		{"unknown key", "[chart]\ncolour = \"red\""},
		{"bad duration", "[animation]\nduration = \"soon\""},
		{"bad easing", "[animation]\neasing = \"bounce\""},
		{"negative volatility", "[simulation]\nvolatility = -1.0"},
		{"bad backend", "[cache]\nbackend = \"memcached\""},
		{"redis without addr", "[cache]\nbackend = \"redis\"\nredis_addr = \"\""},
		{"too many curves", "[chart]\ncurves = 1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("code = %s, want INVALID_CONFIG (%v)", errors.GetCode(err), err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[chart]\nwidth = 800.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, used, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if used != path {
		t.Errorf("used path = %q, want %q", used, path)
	}
	if cfg.Chart.Width != 800 {
		t.Errorf("width = %v, want 800", cfg.Chart.Width)
	}

	_, _, err = Load(filepath.Join(dir, "missing.toml"))
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("explicit missing file err = %v, want NOT_FOUND", err)
	}
}

func TestLoadDefaultLocation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, used, err := Load("")
	if err != nil {
		t.Fatalf("missing default config should not fail: %v", err)
	}
	if want := filepath.Join(dir, "trendline", "config.toml"); used != want {
		t.Errorf("used = %q, want %q", used, want)
	}
	if cfg.Simulation != gbm.DefaultParams() {
		t.Errorf("simulation = %+v, want defaults", cfg.Simulation)
	}

	if err := os.MkdirAll(filepath.Dir(used), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(used, []byte("[simulation]\ndrift = 0.1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, _, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Simulation.Drift != 0.1 {
		t.Errorf("drift = %v, want 0.1", cfg.Simulation.Drift)
	}
}

func TestDefaultPathHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".config", "trendline", "config.toml"); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Chart.Curves = 4
	cfg.Animation.Duration = Duration{2500 * time.Millisecond}

	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(buf.String(), `duration = "2.5s"`) {
		t.Errorf("durations should encode as strings:\n%s", buf.String())
	}

	back, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Chart.Curves != 4 || back.Animation.Duration.Duration != 2500*time.Millisecond {
		t.Errorf("round trip lost values: %+v", back)
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := Default()
	cfg.Chart.Curves = 2
	cfg.Chart.Seed = 11
	cfg.Animation.Easing = "linear"

	opts := cfg.PipelineOptions()
	if opts.Curves != 2 || opts.Seed != 11 {
		t.Errorf("opts = %+v", opts)
	}
	if opts.Stroke != "" {
		t.Errorf("default stroke should be left to the palette, got %q", opts.Stroke)
	}
	if opts.Animation.Easing != motion.Linear {
		t.Errorf("easing = %q", opts.Animation.Easing)
	}

	cfg.Chart.Stroke = "#000000"
	if got := cfg.PipelineOptions().Stroke; got != "#000000" {
		t.Errorf("custom stroke = %q", got)
	}
}
