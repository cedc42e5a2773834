package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func issuePaths(issues []ValidationIssue) []string {
	var paths []string
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	return paths
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	cfg.Gemini.APIKey = "sk-test"
	assert.Nil(t, Validate(&cfg))
}

func TestValidateProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Provider = "openai"
	assert.Contains(t, issuePaths(Validate(&cfg)), "provider")
}

func TestValidateGeminiRequiresKey(t *testing.T) {
	cfg := Defaults()
	cfg.Provider = ProviderGemini
	cfg.Gemini.APIKey = ""
	assert.Contains(t, issuePaths(Validate(&cfg)), "gemini.apiKey")

	// Ollama does not need a key.
	cfg.Provider = ProviderOllama
	assert.NotContains(t, issuePaths(Validate(&cfg)), "gemini.apiKey")
}

func TestValidateBridgeAddr(t *testing.T) {
	cfg := Defaults()
	cfg.Gemini.APIKey = "sk-test"
	cfg.Bridge.Addr = "not-an-addr"
	assert.Contains(t, issuePaths(Validate(&cfg)), "bridge.addr")
}

func TestValidateLoopBounds(t *testing.T) {
	cfg := Defaults()
	cfg.Gemini.APIKey = "sk-test"
	cfg.Loop.MaxTurns = -1
	cfg.Loop.TimeoutSeconds = -5
	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "loop.maxTurns")
	assert.Contains(t, paths, "loop.timeoutSeconds")
}

func TestValidateLogging(t *testing.T) {
	cfg := Defaults()
	cfg.Gemini.APIKey = "sk-test"
	cfg.Logging.Level = "verbose"
	cfg.Logging.Style = "rainbow"
	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "logging.level")
	assert.Contains(t, paths, "logging.style")
}
