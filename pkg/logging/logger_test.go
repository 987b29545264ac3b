package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, err := NewLogger(dir, false)
	require.NoError(t, err)

	logger.Debug("remote command", zap.String("command", "echo ok"))
	_ = logger.Sync()

	content, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"remote command"`)
	assert.Contains(t, string(content), `"command":"echo ok"`)
}

func TestNewLoggerConsoleOnly(t *testing.T) {
	logger, err := NewLogger("", false)
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))

	verbose, err := NewLogger("", true)
	require.NoError(t, err)
	assert.True(t, verbose.Core().Enabled(zap.DebugLevel))
}

func TestNewLoggerBadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := NewLogger(filepath.Join(file, "logs"), false)
	assert.Error(t, err)
}
