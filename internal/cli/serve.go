package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/factorial/trendline/pkg/observability/prom"
	"github.com/factorial/trendline/pkg/server"
)

// serveCommand creates the serve command that runs the chart HTTP server.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache, noMetrics bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve freshly generated charts over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.config.Server.Addr = addr
			}
			return c.runServe(cmd.Context(), noCache, !noMetrics)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, noCache, metrics bool) error {
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	cfg := server.Config{
		Addr:         c.config.Server.Addr,
		ReadTimeout:  c.config.Server.ReadTimeout.Duration,
		WriteTimeout: c.config.Server.WriteTimeout.Duration,
		Defaults:     c.config.PipelineOptions(),
	}
	if metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if _, err := prom.Register(reg); err != nil {
			return err
		}
		cfg.Metrics = prom.Handler(reg)
	}

	printInfo("Serving charts on %s", StyleHighlight.Render(cfg.Addr))
	printDetail("cache: %s", c.cacheLabel(noCache))
	return server.New(runner, logger, cfg).ListenAndServe(ctx)
}

// cacheLabel describes the active cache backend.
func (c *CLI) cacheLabel(noCache bool) string {
	if noCache {
		return "disabled"
	}
	return c.config.Cache.Backend
}
