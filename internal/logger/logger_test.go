package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestBuildLevels(t *testing.T) {
	l := build("DEBUG", "")
	assert.True(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))

	l = build("warn", "production")
	assert.False(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Desugar().Core().Enabled(zapcore.WarnLevel))

	l = build("nonsense", "")
	assert.False(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
}

func TestGetReturnsSameLogger(t *testing.T) {
	assert.Same(t, Get(), Get())
}
