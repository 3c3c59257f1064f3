package logger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := logger.New(logger.Config{Level: "debug", Encoding: "json", OutputPath: path, Service: "studio"})
	require.NoError(t, err)
	log.Debug("hello", zap.String("project_id", "p1"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"level":"DEBUG"`), line)
	assert.Contains(t, line, `"project_id":"p1"`)
	assert.Contains(t, line, `"timestamp"`)
	assert.Contains(t, line, `"service":"studio"`)
	assert.NotContains(t, line, `"caller"`)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := logger.New(logger.Config{Level: "loud", Encoding: "xml", OutputPath: path})
	require.NoError(t, err)
	log.Debug("hidden")
	log.Info("shown")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNew_DevelopmentDefaultsToDebugConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := logger.New(logger.Config{OutputPath: path, Development: true})
	require.NoError(t, err)
	log.Debug("dev message")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, "dev message")
	assert.Contains(t, line, "DEBUG")
	assert.False(t, strings.HasPrefix(line, "{"), line)
	assert.Contains(t, line, "logger_test.go")
}
