// Package cli implements the textart command-line interface.
//
// Commands convert images into text art, list the built-in palettes, serve
// the HTTP API and manage the on-disk cache. The CLI is built using cobra
// and logs through charmbracelet/log.
//
// # Commands
//
//   - convert: render one or more images (URLs, files or stdin) as text
//   - palettes: list built-in glyph palettes with a preview ramp
//   - serve: run the HTTP conversion API
//   - cache: clear or locate the cache directory
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// reports conversion and cache events. Loggers are passed through
// context.Context.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates the CLI logger. Lines carry a "15:04:05.00" timestamp
// and anything below level is dropped.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress measures one operation from creation to donef.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// elapsed is the time since start, rounded to the millisecond.
func (p *progress) elapsed() time.Duration {
	return time.Since(p.start).Round(time.Millisecond)
}

// donef logs the message at info level followed by the elapsed time,
// e.g. "Converted 3 of 3 images (1.234s)".
func (p *progress) donef(format string, args ...any) {
	p.logger.Infof("%s (%s)", fmt.Sprintf(format, args...), p.elapsed())
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger stored by withLogger, or
// log.Default() when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
