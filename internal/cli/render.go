package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/factorial/trendline/pkg/errors"
	"github.com/factorial/trendline/pkg/pipeline"
)

// defaultBase names output files when several formats are written without -o.
const defaultBase = "trendline"

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string   // output file (single format) or base path (multiple)
	formats  []string // svg, json, png, path
	noCache  bool     // bypass the cache entirely
	refresh  bool     // skip cache reads, still write results back
	fallback bool     // render an empty chart when the simulation fails
}

// renderCommand creates the render command.
//
// A single format without -o is written to stdout, so
//
//	trendline render --seed 7 > chart.svg
//
// works as expected. Several formats are written to <base>.<ext> files.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	var flags chartFlags
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Generate a chart and write it as SVG, JSON, PNG or path data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := pipeline.ParseFormats(formatsStr)
			if err != nil {
				return err
			}
			if len(formats) == 0 {
				formats = []string{pipeline.FormatSVG}
			}
			opts.formats = formats

			popts := c.config.PipelineOptions()
			if err := flags.apply(cmd, &popts); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), cmd.OutOrStdout(), popts, opts)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), json, png, path (comma-separated)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")
	cmd.Flags().BoolVar(&opts.fallback, "fallback", false, "write an empty chart instead of failing on bad parameters")

	return cmd
}

// runRender executes the pipeline and writes every artifact.
func (c *CLI) runRender(ctx context.Context, stdout io.Writer, popts pipeline.Options, opts renderOpts) error {
	logger := loggerFromContext(ctx)
	timer := startChartTimer(logger)

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts.Formats = opts.formats
	popts.Refresh = opts.refresh
	popts.Fallback = opts.fallback

	result, err := runner.Execute(ctx, popts)
	if err != nil {
		return err
	}
	if result.Fallback != nil {
		logger.Warn("rendered an empty chart", "reason", errors.UserMessage(result.Fallback))
	}

	if len(opts.formats) == 1 && opts.output == "" {
		_, err := stdout.Write(result.Artifacts[opts.formats[0]])
		return err
	}

	var paths []string
	for _, format := range opts.formats {
		path := outputPath(opts.output, format, len(opts.formats))
		if err := writeArtifact(path, result.Artifacts[format]); err != nil {
			return err
		}
		paths = append(paths, path)
	}

	timer.done("rendered chart", "curves", result.Stats.Curves, "formats", opts.formats)
	printSuccess("Chart written")
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Stats.Curves, result.Stats.Points, result.CacheInfo.RenderHit)
	return nil
}

// fileExt maps formats to file extensions.
var fileExt = map[string]string{
	pipeline.FormatSVG:  ".svg",
	pipeline.FormatJSON: ".json",
	pipeline.FormatPNG:  ".png",
	pipeline.FormatPath: ".txt",
}

// outputPath picks the file for format. A single format is written to
// output verbatim; several formats share output as a base path with any
// known extension removed.
func outputPath(output, format string, count int) string {
	if count == 1 && output != "" {
		return output
	}
	base := basePath(output)
	return base + fileExt[format]
}

// basePath strips a known format extension from output.
func basePath(output string) string {
	if output == "" {
		return defaultBase
	}
	ext := filepath.Ext(output)
	for _, known := range fileExt {
		if ext == known {
			return strings.TrimSuffix(output, ext)
		}
	}
	return output
}

func writeArtifact(path string, data []byte) error {
	if err := errors.ValidateOutputPath(path); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}
