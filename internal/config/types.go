// Package config loads and validates the toolbridge configuration
// file and resolves its standard filesystem paths.
package config

// Config is the root configuration structure.
type Config struct {
	// Provider selects the model backend: "gemini" or "ollama".
	Provider string `yaml:"provider"`

	// Model is the selected model name. Empty means the provider's
	// default.
	Model string `yaml:"model"`

	Gemini  GeminiConfig  `yaml:"gemini"`
	Ollama  OllamaConfig  `yaml:"ollama"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Loop    LoopConfig    `yaml:"loop"`
	Logging LoggingConfig `yaml:"logging"`
}

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	// APIKey may reference an environment variable as ${VAR}.
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseUrl"`
}

// OllamaConfig configures the Ollama backend.
type OllamaConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Model   string `yaml:"model"`
}

// BridgeConfig configures the host WebSocket boundary.
type BridgeConfig struct {
	Addr string `yaml:"addr"`
	// Token may reference an environment variable as ${VAR}.
	Token string `yaml:"token"`
}

// LoopConfig bounds the orchestration loop.
type LoopConfig struct {
	MaxTurns       int `yaml:"maxTurns"`
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Style string `yaml:"style"`
}
