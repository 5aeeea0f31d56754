package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"PORT", "LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY", "LLM_API_TIMEOUT", "LOG_DIR", "LOG_LEVEL", "DEBUG_MODE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8787", cfg.Port)
	assert.Empty(t, cfg.LLMBaseURL)
	assert.Empty(t, cfg.LLMModel)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.False(t, cfg.DebugMode)
}

func TestLoad_FromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("LLM_BASE_URL", " https://llm.example.com/v1/ ")
	t.Setenv("LLM_MODEL", " gpt-mini ")
	t.Setenv("LLM_API_KEY", "key")
	t.Setenv("LLM_API_TIMEOUT", "5s")
	t.Setenv("DEBUG_MODE", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "https://llm.example.com/v1", cfg.LLMBaseURL)
	assert.Equal(t, "gpt-mini", cfg.LLMModel)
	assert.Equal(t, "key", cfg.LLMAPIKey)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	assert.True(t, cfg.DebugMode)
}

func TestLoad_InvalidTimeoutKeepsDefault(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LLM_API_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "http://x", NormalizeBaseURL("  http://x///  "))
	assert.Equal(t, "", NormalizeBaseURL("   "))
}

// chdir mirrors testing.T.Chdir (Go 1.24+): change the working directory
// for the duration of the test and restore it during cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
