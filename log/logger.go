// Package log provides structured logging with pipeline-run context.
//
// Two logger variants are available:
//   - Logger: non-sugared zap.Logger for pipeline hot paths (structured
//     fields, no formatting cost when disabled)
//   - SugaredLogger: printf-style logging for CLI/debug surfaces
//
// Use Logger.Sugar() to obtain a SugaredLogger when needed.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunInfo identifies one pipeline run; every log entry carries its
// fields.
type RunInfo struct {
	// RunID uniquely identifies the run (typically a UUID).
	RunID string
	// Pipeline is the human-readable pipeline name, if configured.
	Pipeline string
}

// Logger provides structured logging with run context. Use this for
// pipeline paths where performance matters; for CLI/debug surfaces, use
// Sugar() to get a SugaredLogger.
type Logger struct {
	zap       *zap.Logger
	run       RunInfo
	processor string
}

// SugaredLogger provides printf-style logging for CLI and debug
// surfaces.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a new logger with run context. Output defaults to
// os.Stderr.
func NewLogger(run RunInfo) *Logger {
	return newLoggerWithWriter(run, os.Stderr)
}

// WithOutput returns a new logger with a different output writer,
// retaining the run and processor context.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	nl := newLoggerWithWriter(l.run, w)
	if l.processor != "" {
		nl = nl.WithProcessor(l.processor)
	}
	return nl
}

// WithProcessor returns a logger tagging entries with a processor name,
// for diagnostics emitted from inside a composed graph.
func (l *Logger) WithProcessor(name string) *Logger {
	return &Logger{
		zap:       l.zap.With(zap.String("processor", name)),
		run:       l.run,
		processor: name,
	}
}

func newCore(w io.Writer) zapcore.Core {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
}

func newLoggerWithWriter(run RunInfo, w io.Writer) *Logger {
	contextFields := []zap.Field{
		zap.String("run_id", run.RunID),
	}
	if run.Pipeline != "" {
		contextFields = append(contextFields, zap.String("pipeline", run.Pipeline))
	}
	return &Logger{zap: zap.New(newCore(w)).With(contextFields...), run: run}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs a debug message with printf-style formatting.
func (s *SugaredLogger) Debugf(template string, args ...any) {
	s.sugar.Debugf(template, args...)
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) {
	s.sugar.Warnf(template, args...)
}

// Errorf logs an error message with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) {
	s.sugar.Errorf(template, args...)
}

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
