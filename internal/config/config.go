package config

import "fmt"

// Provider names accepted in configuration.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Provider: ProviderGemini,
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.2",
		},
		Bridge: BridgeConfig{
			Addr: "127.0.0.1:18790",
		},
		Loop: LoopConfig{
			MaxTurns:       16,
			TimeoutSeconds: 300,
		},
		Logging: LoggingConfig{
			Level: "info",
			Style: "pretty",
		},
	}
}
