// Package logging builds the process-wide zerolog.Logger.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a logger at the given level (any name zerolog.ParseLevel
// accepts, e.g. "debug", "info", "warn", "error"; a name it rejects falls
// back to info). pretty selects the
// human-readable console writer instead of structured JSON, for local
// development.
func New(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
