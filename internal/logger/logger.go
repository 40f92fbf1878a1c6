package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with key/value convenience methods
type Logger struct {
	*zap.Logger
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
	Output string // "stdout", "stderr" or a file path
}

// New creates a new logger based on configuration
func New(cfg LogConfig) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "json" {
		config = zap.NewProductionConfig()
		encoderConfig = zap.NewProductionEncoderConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		config.Encoding = "console"
	}

	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	config.EncoderConfig = encoderConfig
	config.Level = zap.NewAtomicLevelAt(level)

	switch cfg.Output {
	case "", "stderr":
		config.OutputPaths = []string{"stderr"}
	default:
		config.OutputPaths = []string{cfg.Output}
	}
	config.ErrorOutputPaths = []string{"stderr"}

	zl, err := config.Build(zap.AddCaller(), zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{zl}, nil
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() *Logger {
	return &Logger{zap.NewNop()}
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() {
	_ = l.Logger.Sync()
}

// With returns a child logger carrying the given key/value pairs
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{l.Logger.With(fields(kv)...)}
}

// Info logs an info message
func (l *Logger) Info(msg string, kv ...interface{}) {
	l.Logger.Info(msg, fields(kv)...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.Logger.Warn(msg, fields(kv)...)
}

// Error logs an error message
func (l *Logger) Error(msg string, kv ...interface{}) {
	l.Logger.Error(msg, fields(kv)...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, kv ...interface{}) {
	l.Logger.Debug(msg, fields(kv)...)
}

// fields pairs up keys and values; a trailing key without value is dropped
func fields(kv []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if err, isErr := kv[i+1].(error); isErr {
			out = append(out, zap.NamedError(key, err))
			continue
		}
		out = append(out, zap.Any(key, kv[i+1]))
	}
	return out
}
