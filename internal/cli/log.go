package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// logTimeFormat keeps hundredths so the generate and render lines of one
// chart are distinguishable.
const logTimeFormat = "15:04:05.00"

// newLogger returns the CLI logger writing to w (stderr in main, so chart
// output on stdout stays clean).
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      logTimeFormat,
		Level:           level,
	})
}

// chartTimer measures one command's chart work and logs a single summary
// line when it finishes, e.g.
//
//	14:32:01.45 INFO rendered chart curves=3 formats=[svg png] took=12ms
type chartTimer struct {
	logger *log.Logger
	start  time.Time
}

func startChartTimer(l *log.Logger) *chartTimer {
	return &chartTimer{logger: l, start: time.Now()}
}

// done logs msg with keyvals and the elapsed time under "took".
func (t *chartTimer) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "took", time.Since(t.start).Round(time.Millisecond))
	t.logger.Info(msg, keyvals...)
}

type loggerKey struct{}

// withLogger attaches l to ctx for the command's RunE.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the command logger, or log.Default() outside a
// command.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
