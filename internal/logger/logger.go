package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// LogLevel represents the logging level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Options controls how a logger is constructed
type Options struct {
	// Debug lowers the level to debug; otherwise info is used
	Debug bool
	// Pretty selects the human-readable console writer instead of JSON lines
	Pretty bool
	// Out defaults to stderr
	Out io.Writer
}

// New builds the process logger. It is created once from the loaded
// configuration and handed to every component; nothing here touches
// zerolog's global state.
func New(opts Options) zerolog.Logger {
	level := InfoLevel
	if opts.Debug {
		level = DebugLevel
	}

	var output io.Writer = opts.Out
	if output == nil {
		output = os.Stderr
	}
	if opts.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
			NoColor:    !isTerminal(output),
		}
	}

	ctx := zerolog.New(output).
		Level(ParseLevel(string(level))).
		With().
		Timestamp()
	if opts.Debug {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent returns a logger with a component field set
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// Nop returns a disabled logger, handy for tests and previews
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
