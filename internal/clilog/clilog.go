// Package clilog builds the tinted slog.Logger that the chainforge CLI's
// subcommands write to, so they share one log format.
package clilog

import (
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
)

// New builds a logger writing human-friendly, colorized lines to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindAny {
				if _, ok := a.Value.Any().(error); ok {
					return tint.Attr(9, a)
				}
			}
			return a
		},
	})
	return slog.New(handler)
}
