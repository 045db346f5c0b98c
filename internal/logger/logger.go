// Package logger provides the application's zap logger.
package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.SugaredLogger
	once   sync.Once
)

// Init builds the global logger. level is a zap level name ("debug", "info",
// ...; anything unparsable means info). environment "production" selects
// the JSON encoder, anything else the development console encoder.
func Init(level, environment string) {
	once.Do(func() {
		logger = build(level, environment)
	})
}

func build(levelStr, environment string) *zap.SugaredLogger {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(levelStr))); err != nil {
		level = zapcore.InfoLevel
	}

	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	zapLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	return zapLogger.Sugar()
}

// Get returns the global logger, initialising it with defaults if Init was
// never called.
func Get() *zap.SugaredLogger {
	once.Do(func() {
		logger = build("info", "")
	})
	return logger
}

// Sync flushes buffered entries. Errors from syncing stdout are ignored.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
