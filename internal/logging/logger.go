package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Environment variables read by Init.
const (
	EnvLevel  = "VARIATOR_LOG_LEVEL"
	EnvFormat = "VARIATOR_LOG_FORMAT"
	EnvFile   = "VARIATOR_LOG_FILE"
)

// Init initializes the global logger with configuration from environment variables.
// VARIATOR_LOG_LEVEL controls the log level: debug, info, warn, error (default: info)
// VARIATOR_LOG_FORMAT selects console (default) or json output on stderr.
// VARIATOR_LOG_FILE, when set, additionally writes JSON logs to a rotating file.
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(EnvLevel)))
	log.Logger = zerolog.New(writer(os.Stderr)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func writer(stderr io.Writer) io.Writer {
	var out io.Writer = zerolog.ConsoleWriter{Out: stderr}
	if strings.EqualFold(os.Getenv(EnvFormat), "json") {
		out = stderr
	}

	path := os.Getenv(EnvFile)
	if path == "" {
		return out
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
	}
	return zerolog.MultiLevelWriter(out, file)
}
