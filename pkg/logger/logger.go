package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// Init builds the process-wide logger at the requested level. Unknown level
// strings fall back to info instead of failing startup.
func Init(level string) error {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	global = built
	mu.Unlock()
	return nil
}

// Sync flushes buffered entries, typically deferred from main.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return global.Sync()
}

// WithModule returns a child logger tagged with the owning subsystem.
func WithModule(module string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global.With(zap.String("module", module))
}
