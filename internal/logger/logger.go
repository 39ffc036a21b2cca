// Package logger builds the zap loggers used across lydata.
package logger

import (
	"io"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured logging.
const (
	FieldDataset   = "dataset"
	FieldModality  = "modality"
	FieldPath      = "path"
	FieldURL       = "url"
	FieldRows      = "rows"
	FieldColumns   = "columns"
	FieldDuration  = "duration_ms"
	FieldOperation = "operation"
)

// New returns a sugared logger writing to w at the given level ("debug",
// "info", "warn", "error"). JSON output is meant for machines; the console
// encoder is compact and has no timestamps.
func New(w io.Writer, level string, json bool) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}

	var enc zapcore.Encoder
	if json {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.TimeKey = ""
		cfg.CallerKey = ""
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(lvl))
	return zap.New(core).Sugar(), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
