// Package log sets up host logging on slog and relays guest log messages
// into it.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Output formats accepted by WithFormat.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// HandlerOption configures the handler built by NewHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	format    string
	level     slog.Level
	addSource bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level:  slog.LevelInfo,
		format: FormatText,
	}
}

// WithLevel sets the minimum log level to report.
func WithLevel(level slog.Level) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithFormat selects text or JSON output.
func WithFormat(format string) HandlerOption {
	return func(c *handlerConfig) {
		c.format = strings.ToLower(format)
	}
}

// NewHandler creates a text or JSON slog handler writing to w.
func NewHandler(w io.Writer, opts ...HandlerOption) (slog.Handler, error) {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	hopts := &slog.HandlerOptions{Level: cfg.level, AddSource: cfg.addSource}
	switch cfg.format {
	case FormatText, "":
		return slog.NewTextHandler(w, hopts), nil
	case FormatJSON:
		return slog.NewJSONHandler(w, hopts), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.format)
	}
}

// New returns a logger on NewHandler.
func New(w io.Writer, opts ...HandlerOption) (*slog.Logger, error) {
	h, err := NewHandler(w, opts...)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

// ParseLevel parses debug, info, warn or error (any case, with slog's
// optional offset such as "info+2").
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}
