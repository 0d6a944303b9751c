// Package cli implements the trendline command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/factorial/trendline/pkg/buildinfo"
	"github.com/factorial/trendline/pkg/cache"
	"github.com/factorial/trendline/pkg/config"
	"github.com/factorial/trendline/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "trendline"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string        // --config flag
	config     config.Config // loaded in PersistentPreRunE
	configUsed string        // file the config was read from, if any
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Trendline draws animated stochastic growth curves",
		Long:         `Trendline simulates geometric Brownian motion paths and renders them as animated SVG line charts, ready to drop into a landing page.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/trendline/config.toml)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and attaches the logger to the command
// context.
func (c *CLI) loadConfig(cmd *cobra.Command) error {
	cfg, used, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.config = cfg
	c.configUsed = used
	c.Logger.Debug("loaded config", "path", used)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(withLogger(ctx, c.Logger))
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}

	var keyer cache.Keyer
	if c.config.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(nil, c.config.Cache.Prefix)
	}
	r := pipeline.NewRunner(ch, keyer, c.Logger)
	r.TTL = c.config.Cache.TTL.Duration
	return r, nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.config.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.config.Cache.RedisAddr,
			Password: c.config.Cache.RedisPassword,
			DB:       c.config.Cache.RedisDB,
		})
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/trendline/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
