// Package log provides a thin wrapper around zap.
// The application uses a default logger which may be replaced at startup
// (see ResetDefault). Components request named sub-loggers via
// log.Default().Named("...").
package log

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	Logger struct {
		l     *zap.Logger
		level Level
	}
	Option = zap.Option
	Field  = zap.Field
	Level  = zapcore.Level
)

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
	FatalLevel = zapcore.FatalLevel
)

var (
	WithCaller    = zap.WithCaller
	AddStacktrace = zap.AddStacktrace
	AddCallerSkip = zap.AddCallerSkip

	String     = zap.String
	Stringer   = zap.Stringer
	Int        = zap.Int
	Int32      = zap.Int32
	Int64      = zap.Int64
	Uint32     = zap.Uint32
	Uint64     = zap.Uint64
	Float64    = zap.Float64
	Bool       = zap.Bool
	Time       = zap.Time
	Duration   = zap.Duration
	Any        = zap.Any
	ErrorField = zap.Error
)

func ParseLevel(text string) (Level, error) {
	return zapcore.ParseLevel(text)
}

// New creates a logger with JSON output (production format)
func New(writer io.Writer, level Level, opts ...Option) *Logger {
	if writer == nil {
		writer = os.Stderr
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg),
		zapcore.AddSync(writer),
		level,
	)
	return &Logger{l: zap.New(core, opts...), level: level}
}

// DevLogger creates a logger with console output (development format)
func DevLogger(writer io.Writer, level Level, opts ...Option) *Logger {
	if writer == nil {
		writer = os.Stderr
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.AddSync(writer),
		level,
	)
	return &Logger{l: zap.New(core, opts...), level: level}
}

func (l *Logger) Named(name string) *Logger {
	return &Logger{l: l.l.Named(name), level: l.level}
}

func (l *Logger) WithOptions(opts ...Option) *Logger {
	return &Logger{l: l.l.WithOptions(opts...), level: l.level}
}

func (l *Logger) Level() Level { return l.level }

func (l *Logger) Debug(msg string, fields ...Field) { l.l.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.l.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.l.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.l.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...Field) { l.l.Fatal(msg, fields...) }

func (l *Logger) Sync() error { return l.l.Sync() }

var (
	std = DevLogger(os.Stderr, InfoLevel)
	mu  sync.Mutex

	Debug = std.Debug
	Info  = std.Info
	Warn  = std.Warn
	Error = std.Error
	Fatal = std.Fatal
)

func Default() *Logger { return std }

// ResetDefault replaces the default logger and the package level
// convenience functions. Call this once during startup.
func ResetDefault(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	std = l
	Debug = std.Debug
	Info = std.Info
	Warn = std.Warn
	Error = std.Error
	Fatal = std.Fatal
}

func Sync() error {
	if std != nil {
		return std.Sync()
	}
	return nil
}
