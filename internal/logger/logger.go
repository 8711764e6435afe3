// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is the global logger instance. It writes to stderr so that stdout
// only ever carries conversion results.
var Log zerolog.Logger

func init() {
	SetOutput(os.Stderr)
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

// SetOutput points the console logger at w.
func SetOutput(w io.Writer) {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	Log = zerolog.New(output).
		With().
		Timestamp().
		Logger()
}

// Output formats accepted by SetFormat.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// SetFormat selects console or JSON output on w.
func SetFormat(format string, w io.Writer) {
	if format == FormatJSON {
		SetJSON(w)
		return
	}
	SetOutput(w)
}

// SetLevel sets the global log level.
func SetLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}

// SetJSON switches to JSON output on w.
func SetJSON(w io.Writer) {
	Log = zerolog.New(w).
		With().
		Timestamp().
		Logger()
}
