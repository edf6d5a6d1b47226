package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With("user_id", int64(7))

	log.Info("graded", "item_id", "c-1", "grade", "good")
	log.Debug("detail")

	require.Equal(t, 2, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "graded", entry.Message)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, int64(7), fields["user_id"])
	assert.Equal(t, "c-1", fields["item_id"])
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	log, err := New(path, true)
	require.NoError(t, err)
	log.Warn("store slow", "op", "get_many")
	log.Sync()

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"message":"store slow"`)
	assert.Contains(t, string(body), `"level":"WARN"`)
}

func TestNewReportsUnusableLogDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	log, err := New(filepath.Join(blocker, "app.log"), false)
	assert.Error(t, err)
	assert.Nil(t, log)
}

func TestFatalWritesBeforeExiting(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := FromZap(zap.New(core, zap.WithFatalHook(zapcore.WriteThenPanic)))

	assert.Panics(t, func() { log.Fatal("failed to connect to database", "error", "refused") })
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.FatalLevel, logs.All()[0].Level)
	assert.Equal(t, "refused", logs.All()[0].ContextMap()["error"])
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		l := NewNop()
		l.Error("ignored", "k", "v")
		l.Sync()
	})
}
