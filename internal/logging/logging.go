// Package logging builds the zap loggers used by the gtpub commands.
package logging

import (
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by New, besides anything zap itself parses.
const (
	LevelDevelopment = "development"
	LevelProduction  = "production"
)

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "path",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// ParseLevel maps "development" to debug and "production" (or "") to info;
// other values go through zap's level parser.
func ParseLevel(s string) (zap.AtomicLevel, error) {
	switch {
	case s == "", strings.EqualFold(s, LevelProduction):
		return zap.NewAtomicLevelAt(zap.InfoLevel), nil
	case strings.EqualFold(s, LevelDevelopment):
		return zap.NewAtomicLevelAt(zap.DebugLevel), nil
	default:
		return zap.ParseAtomicLevel(strings.ToLower(s))
	}
}

// New returns a console logger writing to w at the given level.
func New(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(zapcore.AddSync(w)), lvl)
	return zap.New(core), nil
}
