package utilities

import (
	"context"
	"os"
	"strings"

	"github.com/antonio-alexander/go-employees/internal"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type logger struct {
	sugar  *zap.SugaredLogger
	config struct {
		Level  Level
		Format string
	}
}

type Level int

const (
	Error Level = 1
	Info  Level = 2
	Debug Level = 3
	Trace Level = 4
)

func (l Level) String() string {
	switch l {
	default:
		return ""
	case Error:
		return "error"
	case Info:
		return "info"
	case Debug:
		return "debug"
	case Trace:
		return "trace"
	}
}

type Logger interface {
	Error(ctx context.Context, format string, v ...any)
	Info(ctx context.Context, format string, v ...any)
	Debug(ctx context.Context, format string, v ...any)
	Trace(ctx context.Context, format string, v ...any)
}

func atoLogLevel(a string) Level {
	switch strings.ToLower(a) {
	default:
		return Error
	case "info":
		return Info
	case "debug":
		return Debug
	case "trace":
		return Trace
	}
}

func NewLogger() interface {
	internal.Configurer
	Logger
} {
	l := &logger{}
	l.config.Level = Error
	l.sugar = newSugar(l.config.Format)
	return l
}

// newSugar builds a logger that accepts everything, filtering is done
// by Level before zap is ever called
func newSugar(format string) *zap.SugaredLogger {
	var encoder zapcore.Encoder

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch strings.ToLower(format) {
	default:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapcore.DebugLevel)
	return zap.New(core).Sugar()
}

func (l *logger) Configure(envs map[string]string) error {
	l.config.Level = Error
	if logLevel, ok := envs["LOG_LEVEL"]; ok {
		l.config.Level = atoLogLevel(logLevel)
	}
	if logFormat, ok := envs["LOG_FORMAT"]; ok {
		l.config.Format = logFormat
	}
	l.sugar = newSugar(l.config.Format)
	return nil
}

func (l *logger) withCtx(ctx context.Context) *zap.SugaredLogger {
	if correlationId := internal.CorrelationIdFromCtx(ctx); correlationId != "" {
		return l.sugar.With("correlation_id", correlationId)
	}
	return l.sugar
}

func (l *logger) Error(ctx context.Context, format string, v ...any) {
	if l.config.Level < Error {
		return
	}
	l.withCtx(ctx).Errorf(format, v...)
}

func (l *logger) Info(ctx context.Context, format string, v ...any) {
	if l.config.Level < Info {
		return
	}
	l.withCtx(ctx).Infof(format, v...)
}

func (l *logger) Debug(ctx context.Context, format string, v ...any) {
	if l.config.Level < Debug {
		return
	}
	l.withCtx(ctx).Debugf(format, v...)
}

// Trace is logged at zap's debug level, it's marked with a trace
// field so it can be filtered out downstream
func (l *logger) Trace(ctx context.Context, format string, v ...any) {
	if l.config.Level < Trace {
		return
	}
	l.withCtx(ctx).With("trace", true).Debugf(format, v...)
}

// NewNopLogger returns a Logger that discards everything, it's useful
// when a component is used without a logger
func NewNopLogger() Logger {
	return &logger{sugar: zap.NewNop().Sugar()}
}
