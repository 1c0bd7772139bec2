package logger

import (
	"os"

	"github.com/cshum/vipsbridge/vips"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a logger
type Logger struct {
	*zap.SugaredLogger
}

// New creates a JSON logger writing errors to stderr and everything else to stdout
func New(loglevel zapcore.Level) *Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	stderrLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= loglevel && lvl >= zapcore.ErrorLevel
	})
	stdoutLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= loglevel && lvl < zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), stderrLevel),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), stdoutLevel),
	)

	return &Logger{
		zap.New(core, zap.AddCaller()).Sugar(),
	}
}

// NewWithCore wraps an existing zap core, mostly useful for tests
func NewWithCore(core zapcore.Core) *Logger {
	return &Logger{zap.New(core).Sugar()}
}

// ParseLevel parses a level name such as "debug" or "warn"
func ParseLevel(name string) (zapcore.Level, error) {
	return zapcore.ParseLevel(name)
}

// VipsHandler returns a handler for vips.SetLogging. Engine warnings are
// logged at warn, critical and error messages at error.
func (l *Logger) VipsHandler() vips.LoggingHandlerFunction {
	return func(domain string, level vips.LogLevel, message string) {
		log := l.With("domain", domain, "level", level.String())
		if level == vips.LogLevelWarning {
			log.Warn(message)
		} else {
			log.Error(message)
		}
	}
}
