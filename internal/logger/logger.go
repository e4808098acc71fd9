package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the optional rotated log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// Setup initializes the global logger. Logs always go to stderr; when
// file.Path is set they are also written to a rotated file. The returned
// closer flushes and closes that file and is never nil.
func Setup(level, format string, file FileOptions) io.Closer {
	zerolog.SetGlobalLevel(ParseLevel(level))

	var console io.Writer = os.Stderr
	if strings.ToLower(format) == "console" {
		console = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}

	var closer io.Closer = nopCloser{}
	output := console
	if file.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			Compress:   file.Compress,
		}
		// the file always gets JSON, whatever the console format
		output = zerolog.MultiLevelWriter(console, rotator)
		closer = rotator
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Logger()
	return closer
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
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

// Get returns a logger with the given component name
func Get(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
