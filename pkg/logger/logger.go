package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/trestleapp/trestle/pkg/environment"
)

// Format represents logger output format.
type Format string

const (
	// FormatJSON outputs structured logs for log aggregation systems.
	FormatJSON Format = "json"
	// FormatText outputs human-readable logs for development.
	FormatText Format = "text"
)

// Option configures logger creation.
type Option func(*config)

func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

func WithFormat(f Format) Option {
	return func(c *config) {
		if f == FormatJSON || f == FormatText {
			c.format = f
		}
	}
}

// WithOutput sets a custom output destination, ignoring nil writers.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr adds static attributes to every log record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// WithContextValue registers a context key whose value, when present,
// is attached to every record logged with that context. The server
// wires the request id through here.
func WithContextValue(name string, key any) Option {
	return func(c *config) {
		if name == "" || key == nil {
			return
		}
		c.extractors = append(c.extractors, func(ctx context.Context) (slog.Attr, bool) {
			if v := ctx.Value(key); v != nil {
				return slog.Any(name, v), true
			}
			return slog.Attr{}, false
		})
	}
}

// WithContextExtractors registers functions that inject dynamic
// attributes from context.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(c *config) {
		for _, ex := range extractors {
			if ex != nil {
				c.extractors = append(c.extractors, ex)
			}
		}
	}
}

// WithEnvironment applies the per-environment defaults: debug-level
// text output in development, info-level JSON everywhere else.
func WithEnvironment(env environment.Environment, service string) Option {
	return func(c *config) {
		if env.IsDevelopment() {
			c.level = slog.LevelDebug
			c.format = FormatText
		} else {
			c.level = slog.LevelInfo
			c.format = FormatJSON
		}
		c.attrs = append(c.attrs,
			slog.String("service", service),
			slog.String("env", string(env)),
		)
	}
}

// SetAsDefault installs l as the process-wide slog default.
func SetAsDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

type config struct {
	level      slog.Level
	format     Format
	output     io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
}

// New creates a configured slog.Logger. Defaults are production-safe:
// info-level JSON on stdout.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.level}

	var handler slog.Handler
	if cfg.format == FormatText {
		handler = slog.NewTextHandler(cfg.output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(cfg.output, handlerOpts)
	}

	if len(cfg.attrs) > 0 {
		handler = handler.WithAttrs(cfg.attrs)
	}

	return slog.New(newContextHandler(handler, cfg.extractors...))
}
