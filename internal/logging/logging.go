// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Setup installs the default slog logger. Format is "json", "pretty", or
// "auto" (pretty when stdout is a terminal, JSON otherwise).
func Setup(format string) *slog.Logger {
	logger := slog.New(newHandler(os.Stdout, format))
	slog.SetDefault(logger)
	return logger
}

func newHandler(w io.Writer, format string) slog.Handler {
	pretty := format == "pretty"
	if format == "auto" || format == "" {
		if f, ok := w.(*os.File); ok {
			pretty = term.IsTerminal(int(f.Fd()))
		}
	}
	if pretty {
		return tint.NewHandler(w, &tint.Options{
			TimeFormat: time.TimeOnly,
		})
	}
	return slog.NewJSONHandler(w, nil)
}
