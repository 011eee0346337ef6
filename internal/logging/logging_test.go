package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bookpilot.log")

	logger, err := New(path, false)
	require.NoError(t, err)
	logger.Info("books loaded", zap.Int("count", 3))
	logger.Debug("hidden detail")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	require.True(t, strings.Contains(out, `"msg":"books loaded"`), out)
	require.True(t, strings.Contains(out, `"count":3`), out)
	require.False(t, strings.Contains(out, "hidden detail"), "debug must be filtered without verbose")
}

func TestNewVerbose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookpilot.log")

	logger, err := New(path, true)
	require.NoError(t, err)
	logger.Debug("request sent")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "request sent")
}
