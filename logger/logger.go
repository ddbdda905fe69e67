/*
Package logger wraps zerolog behind a small construction helper.

PURPOSE:
  One place decides output shape and level: development gets a readable
  console writer, everything else gets JSON lines. The rest of the code
  receives a zerolog.Logger and never looks at the environment again.
*/
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects the logger's output shape and verbosity.
type Config struct {
	Env   string // "development" gets a console writer, anything else JSON
	Level string // trace, debug, info, warn, error
}

// New builds the application logger and redirects zerolog's global logger
// so libraries that use it stay consistent.
func New(cfg Config) zerolog.Logger {
	var w io.Writer = os.Stdout
	if cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	zl := zerolog.New(w).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	log.Logger = zl
	return zl
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
