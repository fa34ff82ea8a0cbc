package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with key/value helpers shared by every component
type Logger struct {
	*zap.Logger
}

// New creates a new logger with the specified level and format
func New(level, format string) (*Logger, error) {
	var zapConfig zap.Config

	if format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapLogger, err := zapConfig.Build(
		zap.AddCallerSkip(2), // skip the level method and log
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &Logger{Logger: zapLogger}, nil
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// FromZap wraps an existing zap logger, e.g. one built on zaptest/observer
func FromZap(z *zap.Logger) *Logger {
	return &Logger{Logger: z}
}

// ParseLevel converts a string level to zapcore.Level
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// WithError returns a logger with an error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With(zap.Error(err))}
}

// WithComponent returns a logger with a component field
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.With(zap.String("component", component))}
}

// WithFeed scopes the logger to a single feed instance
func (l *Logger) WithFeed(feedKey string) *Logger {
	return &Logger{Logger: l.With(zap.String("feed_key", feedKey))}
}

// Info logs msg with alternating key/value pairs, e.g.
//
//	log.Info("Page appended", "count", 8, "cursor", "c2")
//
// Keys are stringified; a trailing key without a value is kept with a
// nil value rather than dropped.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(zapcore.InfoLevel, msg, keysAndValues)
}

// Debug is Info at debug level. Fields are only built when debug is enabled.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(zapcore.DebugLevel, msg, keysAndValues)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(zapcore.WarnLevel, msg, keysAndValues)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.log(zapcore.ErrorLevel, msg, keysAndValues)
}

// Fatal logs at fatal level and then exits the process
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.log(zapcore.FatalLevel, msg, keysAndValues)
}

func (l *Logger) log(level zapcore.Level, msg string, keysAndValues []interface{}) {
	ce := l.Check(level, msg)
	if ce == nil {
		return
	}
	ce.Write(pairsToFields(keysAndValues)...)
}

func pairsToFields(kv []interface{}) []zap.Field {
	if len(kv) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 == len(kv) {
			fields = append(fields, zap.Any(key, nil))
			break
		}
		fields = append(fields, typedField(key, kv[i+1]))
	}
	return fields
}

func typedField(key string, value interface{}) zap.Field {
	switch v := value.(type) {
	case error:
		return zap.NamedError(key, v)
	case time.Duration:
		return zap.Duration(key, v)
	case time.Time:
		return zap.Time(key, v)
	case fmt.Stringer:
		return zap.Stringer(key, v)
	default:
		// zap.Any already picks the typed field for strings, ints and bools
		return zap.Any(key, v)
	}
}
