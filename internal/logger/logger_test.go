package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/circle/internal/config"
	"go.uber.org/zap"
)

func restoreLog(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })
}

func TestInitialize_RejectsUnknownLevel(t *testing.T) {
	restoreLog(t)
	err := Initialize(config.LogConfig{Level: "chatty"}, false)
	assert.Error(t, err)
}

func TestInitialize_WritesJSONToFile(t *testing.T) {
	restoreLog(t)
	path := filepath.Join(t.TempDir(), "circle.log")

	require.NoError(t, Initialize(config.LogConfig{Level: "warn", File: path, MaxSizeMB: 1}, false))
	Log.Info("below threshold")
	Log.Warn("toggle conflict", WithKind("like"), WithTarget("post", "p1"))
	_ = Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "toggle conflict", entry["msg"])
	assert.Equal(t, "circle", entry["service"])
	assert.Equal(t, "like", entry["kind"])
	assert.Equal(t, map[string]any{"type": "post", "id": "p1"}, entry["target"])
}

func TestInitialize_DashMeansStdoutOnly(t *testing.T) {
	restoreLog(t)
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, Initialize(config.LogConfig{Level: "error", File: "-"}, true))
	Log.Error("stdout only", zap.String("k", "v"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
