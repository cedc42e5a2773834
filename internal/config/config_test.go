package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "127.0.0.1:18790", cfg.Bridge.Addr)
	assert.Equal(t, 16, cfg.Loop.MaxTurns)
	assert.Equal(t, 300, cfg.Loop.TimeoutSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
provider: ollama
model: llama3.2
ollama:
  baseUrl: http://10.0.0.5:11434
loop:
  maxTurns: 4
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "llama3.2", cfg.Model)
	assert.Equal(t, "http://10.0.0.5:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, 4, cfg.Loop.MaxTurns)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset fields still get defaults.
	assert.Equal(t, 300, cfg.Loop.TimeoutSeconds)
	assert.Equal(t, "pretty", cfg.Logging.Style)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "provider: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadExpandsSensitiveFields(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "sk-expanded")
	path := writeConfig(t, `
gemini:
  apiKey: ${TEST_GEMINI_KEY}
bridge:
  token: ${UNSET_VARIABLE_XYZ}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-expanded", cfg.Gemini.APIKey)
	// Unset variables are left as-is.
	assert.Equal(t, "${UNSET_VARIABLE_XYZ}", cfg.Bridge.Token)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TOOLBRIDGE_PROVIDER", "OLLAMA")
	t.Setenv("TOOLBRIDGE_MODEL", "qwen2.5")
	t.Setenv("TOOLBRIDGE_MAX_TURNS", "8")
	t.Setenv("TOOLBRIDGE_LOG_LEVEL", "WARN")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "qwen2.5", cfg.Model)
	assert.Equal(t, 8, cfg.Loop.MaxTurns)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestSaveAndLoadRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := map[string]any{
		"provider": "ollama",
		"loop":     map[string]any{"maxTurns": 2},
	}
	require.NoError(t, SaveRaw(path, raw))

	got, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", got["provider"])

	val, ok := GetValueAtPath(got, []string{"loop", "maxTurns"})
	require.True(t, ok)
	assert.Equal(t, 2, val)
}
