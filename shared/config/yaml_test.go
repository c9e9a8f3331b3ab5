package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tenantbot/tenantbot/shared/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const sampleConfig = `
server:
  address: ":9090"
  log_level: debug
  public_base_url: https://bot.example.com
services:
  gallery_url: http://gallery:8081
  rag_url: http://rag:8082
  gallery_timeout_seconds: 5
  rag_timeout_seconds: 45
llm:
  url: http://llm:8083
  api_key: test-key
  model: test-model
database:
  url: postgres://bot:bot@db/bot?sslmode=disable
prompts:
  admin_prompt_file: /etc/tenantbot/admin-prompt.txt
limits:
  turns_per_minute: 10
`

func TestYamlConfigLoadsAllSections(t *testing.T) {
	path := writeConfigFile(t, sampleConfig)

	cfg, err := config.NewYamlConfig(path, zap.NewNop())
	require.NoError(t, err)
	defer cfg.Close()

	addr, err := cfg.ListenAddr()
	require.NoError(t, err)
	assert.Equal(t, ":9090", addr)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, "debug", level)

	baseURL, err := cfg.PublicBaseURL()
	require.NoError(t, err)
	assert.Equal(t, "https://bot.example.com", baseURL)

	galleryURL, err := cfg.GalleryURL()
	require.NoError(t, err)
	assert.Equal(t, "http://gallery:8081", galleryURL)

	galleryTimeout, err := cfg.GalleryTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, galleryTimeout)

	ragTimeout, err := cfg.RAGTimeout()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, ragTimeout)

	llmURL, err := cfg.LLMURL()
	require.NoError(t, err)
	assert.Equal(t, "http://llm:8083", llmURL)

	model, err := cfg.LLMModel()
	require.NoError(t, err)
	assert.Equal(t, "test-model", model)

	dbURL, err := cfg.DatabaseURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://bot:bot@db/bot?sslmode=disable", dbURL)

	promptFile, err := cfg.AdminPromptFile()
	require.NoError(t, err)
	assert.Equal(t, "/etc/tenantbot/admin-prompt.txt", promptFile)

	turns, err := cfg.TurnsPerMinute()
	require.NoError(t, err)
	assert.Equal(t, 10, turns)
}

func TestYamlConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, "server:\n  log_level: warn\n")

	cfg, err := config.NewYamlConfig(path, zap.NewNop())
	require.NoError(t, err)
	defer cfg.Close()

	addr, err := cfg.ListenAddr()
	require.NoError(t, err)
	assert.Equal(t, ":8080", addr)

	galleryTimeout, err := cfg.GalleryTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, galleryTimeout)

	turns, err := cfg.TurnsPerMinute()
	require.NoError(t, err)
	assert.Equal(t, 30, turns)

	// Unset service endpoints report ErrNotFound.
	_, err = cfg.GalleryURL()
	assert.True(t, errors.Is(err, config.ErrNotFound))
	_, err = cfg.DatabaseURL()
	assert.True(t, errors.Is(err, config.ErrNotFound))
}

func TestYamlConfigMissingFile(t *testing.T) {
	_, err := config.NewYamlConfig(filepath.Join(t.TempDir(), "missing.yaml"), zap.NewNop())
	assert.Error(t, err)
}

func TestYamlConfigInvalidYaml(t *testing.T) {
	path := writeConfigFile(t, "server: [not a mapping")
	_, err := config.NewYamlConfig(path, zap.NewNop())
	assert.Error(t, err)
}

func TestYamlConfigUpdatePicksUpChanges(t *testing.T) {
	path := writeConfigFile(t, "limits:\n  turns_per_minute: 5\n")

	cfg, err := config.NewYamlConfig(path, zap.NewNop())
	require.NoError(t, err)
	defer cfg.Close()

	turns, err := cfg.TurnsPerMinute()
	require.NoError(t, err)
	require.Equal(t, 5, turns)

	require.NoError(t, os.WriteFile(path, []byte("limits:\n  turns_per_minute: 7\n"), 0644))
	require.NoError(t, cfg.Update())

	turns, err = cfg.TurnsPerMinute()
	require.NoError(t, err)
	assert.Equal(t, 7, turns)
}
