package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fakeyudi/syllabus/internal/config"
)

func TestDefaultPathUsesXDGState(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "syllabus", "syllabus.log"), p)
}

func TestNewWritesJSONAtLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.log")
	cfg := config.Defaults()
	cfg.LogFile = path
	cfg.LogLevel = "warn"

	logger, err := New(cfg, false)
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "warn", rec["level"])
}

func TestNewVerboseForcesDebug(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogFile = filepath.Join(t.TempDir(), "out.log")
	logger, err := New(cfg, true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewRejectsBadLevel(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogFile = filepath.Join(t.TempDir(), "out.log")
	cfg.LogLevel = "loud"
	_, err := New(cfg, false)
	assert.Error(t, err)
}
