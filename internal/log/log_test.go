package log

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"umlforge/local-app/internal/model"
)

func TestLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewWithCore(core)

	ctx := WithCommand(context.Background(), "edit:undo")
	logger.Info(ctx, "Transaction undone", Fields{"name": "rename", "error": errors.New("boom")})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Transaction undone", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "edit:undo", fields["command"])
	assert.Equal(t, "rename", fields["name"])
	assert.Equal(t, "boom", fields["error"])
}

func TestNewLoggerWritesFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := &model.Config{LogFolder: dir, LogFile: "app.log", CommandLog: "commands.log"}

	logger, err := NewLogger(cfg, LevelInfo)
	require.NoError(t, err)

	logger.Debug(context.Background(), "hidden", nil)
	logger.Info(context.Background(), "Application started", nil)
	logger.Command(context.Background(), "edit:redo", Fields{"status": "ok"})
	require.NoError(t, logger.Close())

	app, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(app), "Application started")
	assert.NotContains(t, string(app), "hidden")

	commands, err := os.ReadFile(filepath.Join(dir, "commands.log"))
	require.NoError(t, err)
	assert.Contains(t, string(commands), "edit:redo")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
