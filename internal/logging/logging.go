// Package logging builds zap loggers and names the structured fields shared
// by every component.
package logging

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names. Use these instead of raw strings.
const (
	FieldBackend    = "backend"
	FieldEntity     = "entity"
	FieldKey        = "key"
	FieldOperation  = "operation"
	FieldSequence   = "sequence"
	FieldValue      = "value"
	FieldConstraint = "constraint"
	FieldAttempt    = "attempt"
	FieldMessageID  = "message_id"
	FieldCommandID  = "command_id"
	FieldStatus     = "status"
	FieldCount      = "count"
)

// New returns a production logger at level. With json false output is a
// human-readable console encoding.
func New(level string, json bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "parse log level %q", level)
	}

	var cfg zap.Config
	if json {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
