package config_test

import (
	"testing"
	"time"

	"storyreel/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "projects", cfg.Storage.KeyPrefix)
	assert.Equal(t, 5*time.Second, cfg.Video.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Video.Timeout)
	assert.Equal(t, 3*time.Second, cfg.RefImage.PollInterval)
	assert.Equal(t, 2*time.Minute, cfg.RefImage.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Video.MockDuration)
	assert.True(t, cfg.AutoSave)
}

func TestLoad_LoggerFollowsAppEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.Logger.Development)
	assert.Equal(t, "storyreel", cfg.Logger.Service)

	t.Setenv("APP_ENV", "development")
	cfg, err = config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.Logger.Development)
}

func TestLoad_RejectsUnknownStorageDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "floppy")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_VideoProviderNeedsKey(t *testing.T) {
	t.Setenv("VIDEO_PROVIDER", "video")
	t.Setenv("VIDEO_API_KEY", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoadAI_MockNeedsNoKey(t *testing.T) {
	t.Setenv("AI_CLIENT_TYPE", "mock")
	t.Setenv("AI_TIMEOUT", "30s")

	cfg, err := config.LoadAI()
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.ClientType)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Empty(t, cfg.APIKey)
}

func TestLoadAI_OpenAIReadsKeyFromEnv(t *testing.T) {
	t.Setenv("AI_CLIENT_TYPE", "openai")
	t.Setenv("AI_API_KEY", "sk-test")

	cfg, err := config.LoadAI()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.APIKey)
}
