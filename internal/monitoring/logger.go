// Package monitoring holds the shared diagnostic logger for the tracking
// pipeline.
package monitoring

import (
	"os"

	"github.com/rs/zerolog"
)

// Logf is the package-level diagnostic logger. It defaults to a zerolog
// console writer on stderr but may be replaced by SetLogger. Tests or
// production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = defaultLogf()

func defaultLogf() func(format string, v ...interface{}) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return func(format string, v ...interface{}) {
		logger.Info().Msgf(format, v...)
	}
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
