// Package logging configures zerolog for the catalog client and proxy, and
// carries the correlation ids (fetch_id, request_id) that tie a proxy request
// to the catalog calls it caused.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a configured level name.
type LogLevel string

const (
	LevelDebug    LogLevel = "debug"
	LevelInfo     LogLevel = "info"
	LevelWarn     LogLevel = "warn"
	LevelError    LogLevel = "error"
	LevelDisabled LogLevel = "disabled"
)

var zerologLevels = map[LogLevel]zerolog.Level{
	LevelDebug:    zerolog.DebugLevel,
	LevelInfo:     zerolog.InfoLevel,
	LevelWarn:     zerolog.WarnLevel,
	LevelError:    zerolog.ErrorLevel,
	LevelDisabled: zerolog.Disabled,
}

// levelAliases maps accepted spellings onto canonical names.
var levelAliases = map[string]LogLevel{
	"":        LevelInfo,
	"warning": LevelWarn,
	"off":     LevelDisabled,
}

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool

	// Output defaults to os.Stderr when nil.
	Output io.Writer

	// Service, when set, is stamped on every line as "service".
	Service string
}

// DefaultConfig returns JSON logging at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup installs the global logger used by NewLogger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(cfg.Level.toZerolog())

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	lc := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		lc = lc.Str(FieldService, cfg.Service)
	}

	log.Logger = lc.Logger()
	return log.Logger
}

// ParseLevel validates a level name from configuration. Matching ignores
// case and surrounding space; empty selects info.
func ParseLevel(s string) (LogLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := levelAliases[name]; ok {
		return alias, nil
	}
	level := LogLevel(name)
	if _, ok := zerologLevels[level]; !ok {
		return "", fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// toZerolog falls back to info for names ParseLevel would reject.
func (l LogLevel) toZerolog() zerolog.Level {
	parsed, err := ParseLevel(string(l))
	if err != nil {
		return zerolog.InfoLevel
	}
	return zerologLevels[parsed]
}

// NewLogger derives a component logger from the global logger.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str(FieldComponent, component).Logger()
}

// Level usage:
//
//	debug  request flow, collapsed records, rate limit waits
//	info   completed fetches, proxy requests, startup and shutdown
//	warn   upstream errors, timeouts, partial results, duplicate ids, Redis fallback
//	error  transport failures, startup configuration errors
