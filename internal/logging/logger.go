// Package logging holds the process-wide zap logger.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ai-app-builder/internal/config"
)

const serviceName = "ai-app-builder"

var (
	mu       sync.RWMutex
	global   *zap.Logger
	initOnce sync.Once
)

// Init builds the global logger. Production (ENVIRONMENT, NODE_ENV or
// GO_ENV) gets JSON with ISO8601 timestamps; anything else gets the
// colored console encoder. LOG_LEVEL overrides the level. Only the first
// call has an effect.
func Init() {
	initOnce.Do(func() {
		l, err := New(config.IsProductionEnvironment(), os.Getenv("LOG_LEVEL"))
		if err != nil {
			l = zap.NewNop()
		}
		mu.Lock()
		global = l
		mu.Unlock()
	})
}

// New builds a logger tagged with the service name. An unparsable level
// keeps the encoder default.
func New(production bool, level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if production {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if lvl, err := zapcore.ParseLevel(strings.TrimSpace(level)); err == nil && level != "" {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("service", serviceName)), nil
}

// L returns the global logger, initializing it on first use.
func L() *zap.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l == nil {
		Init()
		mu.RLock()
		l = global
		mu.RUnlock()
	}
	return l
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if global != nil {
		_ = global.Sync()
	}
}

// OrDefault returns l, or the global logger when l is nil.
func OrDefault(l *zap.Logger) *zap.Logger {
	if l != nil {
		return l
	}
	return L()
}
