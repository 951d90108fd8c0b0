package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, l)

	l, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestInteractiveWithoutFileIsSilent(t *testing.T) {
	logger, err := New(Config{Level: "debug", Interactive: true})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestFileLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "playground.log")
	logger, err := New(Config{Level: "info", File: path, Interactive: true})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("connected", zap.String("component", "conn"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "connected", entry["msg"])
	assert.Equal(t, "conn", entry["component"])
	assert.Equal(t, "llm-playground", entry["logger"])
}

func TestInvalidLevelFails(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	assert.Error(t, err)
}
