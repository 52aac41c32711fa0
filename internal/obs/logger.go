package obs

import (
	"go.uber.org/zap"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a minimal logging interface for observability.
type Logger interface {
	Logf(level Level, format string, args ...interface{})
}

// NopLogger discards all logs.
type NopLogger struct{}

func (NopLogger) Logf(level Level, format string, args ...interface{}) {}

// ZapLogger bridges the Logger interface to a zap logger.
type ZapLogger struct {
	S *zap.SugaredLogger
}

// NewZapLogger wraps l for use as a Logger.
func NewZapLogger(l *zap.Logger) ZapLogger {
	return ZapLogger{S: l.Sugar()}
}

func (z ZapLogger) Logf(level Level, format string, args ...interface{}) {
	if z.S == nil {
		return
	}
	switch level {
	case Debug:
		z.S.Debugf(format, args...)
	case Info:
		z.S.Infof(format, args...)
	case Warn:
		z.S.Warnf(format, args...)
	default:
		z.S.Errorf(format, args...)
	}
}
