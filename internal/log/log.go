package log

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"umlforge/local-app/internal/model"
)

// Fields carries structured key/value pairs attached to a log entry
type Fields map[string]interface{}

type contextKey struct{}

// WithCommand returns a context whose log entries carry the given command id
func WithCommand(ctx context.Context, commandID string) context.Context {
	return context.WithValue(ctx, contextKey{}, commandID)
}

// Logger writes application entries and command entries to separate JSON log files
type Logger struct {
	logger        *zap.Logger
	commandLogger *zap.Logger
	level         zap.AtomicLevel
}

// NewLogger creates a new Logger writing into the configured log folder
func NewLogger(cfg *model.Config, level LogLevel) (*Logger, error) {
	// Create log directory if it doesn't exist
	if err := os.MkdirAll(cfg.LogFolder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	atomicLevel := zap.NewAtomicLevelAt(level.toZapLevel())

	logger, err := buildLogger(filepath.Join(cfg.LogFolder, cfg.LogFile), atomicLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	commandLogger, err := buildLogger(filepath.Join(cfg.LogFolder, cfg.CommandLog), zap.NewAtomicLevelAt(zapcore.InfoLevel))
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open command log file: %w", err)
	}

	return &Logger{
		logger:        logger,
		commandLogger: commandLogger,
		level:         atomicLevel,
	}, nil
}

// NewNop returns a Logger that discards everything
func NewNop() *Logger {
	return &Logger{
		logger:        zap.NewNop(),
		commandLogger: zap.NewNop(),
		level:         zap.NewAtomicLevel(),
	}
}

// NewWithCore builds a Logger on top of an existing zap core, used to observe log output
func NewWithCore(core zapcore.Core) *Logger {
	l := zap.New(core)
	return &Logger{logger: l, commandLogger: l, level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
}

func buildLogger(path string, level zap.AtomicLevel) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cfg := zap.Config{
		Level:            level,
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

// SetLevel changes the minimum level of application entries
func (l *Logger) SetLevel(level LogLevel) {
	l.level.SetLevel(level.toZapLevel())
}

// Debug logs a diagnostic message
func (l *Logger) Debug(ctx context.Context, msg string, fields Fields) {
	l.logger.Debug(msg, toZapFields(ctx, fields)...)
}

// Info logs an informational message
func (l *Logger) Info(ctx context.Context, msg string, fields Fields) {
	l.logger.Info(msg, toZapFields(ctx, fields)...)
}

// Warn logs a warning
func (l *Logger) Warn(ctx context.Context, msg string, fields Fields) {
	l.logger.Warn(msg, toZapFields(ctx, fields)...)
}

// Error logs an error
func (l *Logger) Error(ctx context.Context, msg string, fields Fields) {
	l.logger.Error(msg, toZapFields(ctx, fields)...)
}

// Command logs an executed command to the command log
func (l *Logger) Command(ctx context.Context, msg string, fields Fields) {
	l.commandLogger.Info(msg, toZapFields(ctx, fields)...)
}

// Close flushes both loggers
func (l *Logger) Close() error {
	if err := l.logger.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := l.commandLogger.Sync(); err != nil {
		return fmt.Errorf("failed to sync command log file: %w", err)
	}
	return nil
}

func toZapFields(ctx context.Context, fields Fields) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	if ctx != nil {
		if id, ok := ctx.Value(contextKey{}).(string); ok {
			out = append(out, zap.String("command", id))
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
