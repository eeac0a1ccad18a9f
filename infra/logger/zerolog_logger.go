package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the log level and output format.
type Config struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json or console
}

// SetDefaults fills unset fields. APP_ENV=dev switches the default format to
// console output.
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
		if strings.EqualFold(os.Getenv("APP_ENV"), "dev") {
			c.Format = "console"
		}
	}
}

// Validate checks the level and format names.
func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("log format must be json or console, got %q", c.Format)
	}
	return nil
}

var (
	mu        sync.RWMutex
	outFormat string
	out       io.Writer = os.Stderr
)

// Setup installs the process wide level and format. Records go to stderr so
// that stdout stays free for submissions.
func Setup(cfg Config) error {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	lvl, _ := zerolog.ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(lvl)
	mu.Lock()
	outFormat = cfg.Format
	mu.Unlock()
	return nil
}

// SetOutput redirects every logger created afterwards to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger tagged with the component field.
func NewZerologLogger(component string) Logger {
	return newZerolog(component, nil)
}

func newZerolog(component string, fields map[string]string) *ZerologLogger {
	mu.RLock()
	f, w := outFormat, out
	mu.RUnlock()
	if f == "" {
		var c Config
		c.SetDefaults()
		f = c.Format
	}
	if f == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(w).With().Timestamp().Str("component", component)
	for k, v := range fields {
		ctx = ctx.Str(k, v)
	}
	return &ZerologLogger{log: ctx.Logger()}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
