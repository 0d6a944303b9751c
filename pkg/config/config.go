// Package config loads trendline settings from a TOML file.
//
// Settings are layered: built-in defaults, then the config file, then
// command-line flags or query parameters. A config file only needs the keys
// it changes:
//
//	[simulation]
//	volatility = 0.35
//
//	[chart]
//	curves = 3
//
//	[animation]
//	duration = "6s"
//	easing = "easeOut"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/factorial/trendline/pkg/cache"
	"github.com/factorial/trendline/pkg/curve"
	"github.com/factorial/trendline/pkg/errors"
	"github.com/factorial/trendline/pkg/gbm"
	"github.com/factorial/trendline/pkg/motion"
	"github.com/factorial/trendline/pkg/pipeline"
	"github.com/factorial/trendline/pkg/render/sink"
)

const (
	appName  = "trendline"
	fileName = "config.toml"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the full set of file settings.
type Config struct {
	Simulation gbm.Params  `toml:"simulation"`
	Scale      curve.Scale `toml:"scale"`
	Chart      Chart       `toml:"chart"`
	Animation  Animation   `toml:"animation"`
	Server     Server      `toml:"server"`
	Cache      Cache       `toml:"cache"`
}

// Chart holds presentation settings.
type Chart struct {
	Width       float64  `toml:"width"`
	Height      float64  `toml:"height"`
	Curves      int      `toml:"curves"`
	Seed        uint64   `toml:"seed"`
	Stroke      string   `toml:"stroke"`
	StrokeWidth float64  `toml:"stroke_width"`
	Palette     []string `toml:"palette"`
	Static      bool     `toml:"static"`
}

// Animation holds reveal timings.
type Animation struct {
	Duration     Duration `toml:"duration"`
	FadeDuration Duration `toml:"fade_duration"`
	Easing       string   `toml:"easing"`
}

// Server holds HTTP server settings.
type Server struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// Cache selects and configures the artifact cache.
type Cache struct {
	Backend       string   `toml:"backend"`
	TTL           Duration `toml:"ttl"`
	Prefix        string   `toml:"prefix"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
}

// Duration is a time.Duration written as a string such as "1.5s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid duration %q", text)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	a := motion.DefaultAnimation()
	return Config{
		Simulation: gbm.DefaultParams(),
		Scale:      curve.DefaultScale(),
		Chart: Chart{
			Width:       sink.DefaultWidth,
			Height:      sink.DefaultHeight,
			Curves:      pipeline.DefaultCurves,
			Stroke:      sink.DefaultStroke,
			StrokeWidth: sink.DefaultStrokeWidth,
		},
		Animation: Animation{
			Duration:     Duration{a.Duration},
			FadeDuration: Duration{a.FadeDuration},
			Easing:       string(a.Easing),
		},
		Server: Server{
			Addr:         ":8080",
			ReadTimeout:  Duration{10 * time.Second},
			WriteTimeout: Duration{30 * time.Second},
		},
		Cache: Cache{
			Backend:   BackendFile,
			TTL:       Duration{cache.DefaultTTL},
			RedisAddr: "localhost:6379",
		},
	}
}

// DefaultPath returns the config file location:
// $XDG_CONFIG_HOME/trendline/config.toml, else ~/.config/trendline/config.toml.
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, fileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "locate home directory")
	}
	return filepath.Join(home, ".config", appName, fileName), nil
}

// Load reads the config file at path on top of the defaults. An empty path
// means [DefaultPath], which may be absent. An explicitly named file must
// exist.
func Load(path string) (Config, string, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), "", nil
		}
		path = p
	}

	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if os.IsNotExist(err) {
		if explicit {
			return Config{}, path, errors.New(errors.ErrCodeNotFound, "config file %s not found", path)
		}
		return Default(), path, nil
	}
	if err != nil {
		return Config{}, path, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, path, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, path, err
	}
	return cfg, path, nil
}

// Decode parses TOML from r on top of the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c Config) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	return nil
}

// Validate checks every section. Errors carry INVALID_CONFIG and wrap the
// underlying validation error.
func (c Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "[simulation]")
	}
	if err := c.Scale.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "[scale]")
	}
	opts := c.PipelineOptions()
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "[chart]/[animation]")
	}
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "[cache] backend must be one of file, redis, none; got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "[cache] redis_addr is required for the redis backend")
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "[cache] ttl must be >= 0")
	}
	return nil
}

// Animation returns the animation section as motion settings.
func (a Animation) Animation() motion.Animation {
	return motion.Animation{
		Duration:     a.Duration.Duration,
		FadeDuration: a.FadeDuration.Duration,
		Easing:       motion.Easing(a.Easing),
	}
}

// PipelineOptions converts the settings into pipeline options. The stroke
// is left empty when it is the default so multi-curve charts use the palette.
func (c Config) PipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Params = c.Simulation
	opts.Scale = c.Scale
	opts.Curves = c.Chart.Curves
	opts.Seed = c.Chart.Seed
	opts.Width = c.Chart.Width
	opts.Height = c.Chart.Height
	opts.StrokeWidth = c.Chart.StrokeWidth
	opts.Palette = c.Chart.Palette
	opts.Static = c.Chart.Static
	opts.Animation = c.Animation.Animation()
	if c.Chart.Stroke != sink.DefaultStroke {
		opts.Stroke = c.Chart.Stroke
	}
	return opts
}
