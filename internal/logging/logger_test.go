package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		level      string
		enabled    zapcore.Level
		disabled   zapcore.Level
	}{
		{name: "development defaults to debug", enabled: zapcore.DebugLevel, disabled: zapcore.DebugLevel - 1},
		{name: "production defaults to info", production: true, enabled: zapcore.InfoLevel, disabled: zapcore.DebugLevel},
		{name: "level override", production: true, level: "warn", enabled: zapcore.WarnLevel, disabled: zapcore.InfoLevel},
		{name: "unparsable level ignored", level: "loud", enabled: zapcore.DebugLevel, disabled: zapcore.DebugLevel - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.production, tt.level)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.enabled))
			assert.False(t, l.Core().Enabled(tt.disabled))
		})
	}
}

func TestOrDefault(t *testing.T) {
	l := zap.NewNop()
	assert.Same(t, l, OrDefault(l))
	assert.NotNil(t, OrDefault(nil))
}
