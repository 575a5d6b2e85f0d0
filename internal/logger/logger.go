package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns the root service logger. Components derive their own with
// .With().Str("component", ...).
func New(service string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Logger()
}
