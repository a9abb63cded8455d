package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewFilePlugin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.log")
	plugin, closer := NewFilePlugin(path, zapcore.InfoLevel)
	logger := NewLogger(plugin)

	logger.Debug("hidden")
	logger.Named("crawler").Info("page extracted", zap.Int("page", 1), zap.Duration("took", 1500*time.Millisecond))
	require.NoError(t, logger.Sync())
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"page extracted"`)
	assert.Contains(t, string(data), `"level":"INFO"`)
	assert.Contains(t, string(data), `"timestamp"`)
	assert.Contains(t, string(data), `"component":"crawler"`)
	assert.Contains(t, string(data), `"took":"1.5s"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNewTee(t *testing.T) {
	debugCore, debugLogs := observer.New(zapcore.DebugLevel)
	warnCore, warnLogs := observer.New(zapcore.WarnLevel)
	logger := NewLogger(NewTee(debugCore, warnCore))

	logger.Debug("fetching")
	logger.Warn("timeout")

	assert.Equal(t, 2, debugLogs.Len())
	assert.Equal(t, 1, warnLogs.Len())
	assert.Equal(t, "timeout", warnLogs.All()[0].Message)
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, l)

	l, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
