// Package logging owns the process-wide structured logger.
package logging

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured log entries.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldSpecies   = "species"
	FieldLine      = "line"
	FieldCount     = "count"
	FieldPath      = "path"
	FieldWorkers   = "workers"
	FieldError     = "error"
)

// Logger is the global logger. It discards everything until Initialize is
// called.
var Logger = zap.NewNop().Sugar()

// Options controls logger construction.
type Options struct {
	Level string // debug, info, warn, error
	JSON  bool
	// Output defaults to stderr; stdout carries command results.
	Output io.Writer
}

// Initialize builds the global logger.
func Initialize(opts Options) error {
	l, err := New(opts)
	if err != nil {
		return err
	}
	Logger = l
	return nil
}

// New builds a logger without touching the global one.
func New(opts Options) (*zap.SugaredLogger, error) {
	level := zapcore.WarnLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, errors.WithHint(
				errors.Newf("invalid log level %q", opts.Level),
				"use one of debug, info, warn, error")
		}
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.TimeKey = ""
		cfg.CallerKey = ""
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), zap.NewAtomicLevelAt(level))
	return zap.New(core).Sugar(), nil
}

// Named returns a child of the global logger tagged with a component.
func Named(component string) *zap.SugaredLogger {
	return Logger.With(FieldComponent, component)
}
