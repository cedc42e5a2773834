package config

import (
	"fmt"
	"net"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	validProviders := []string{ProviderGemini, ProviderOllama}
	if cfg.Provider != "" && !slices.Contains(validProviders, cfg.Provider) {
		issues = append(issues, ValidationIssue{
			Path:    "provider",
			Message: fmt.Sprintf("must be one of %v, got %q", validProviders, cfg.Provider),
		})
	}

	if cfg.Provider == ProviderGemini && cfg.Gemini.APIKey == "" {
		issues = append(issues, ValidationIssue{
			Path:    "gemini.apiKey",
			Message: "api key is required for the gemini provider",
		})
	}

	if cfg.Ollama.BaseURL == "" {
		issues = append(issues, ValidationIssue{
			Path:    "ollama.baseUrl",
			Message: "base url must not be empty",
		})
	}

	if cfg.Bridge.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Bridge.Addr); err != nil {
			issues = append(issues, ValidationIssue{
				Path:    "bridge.addr",
				Message: fmt.Sprintf("must be host:port, got %q", cfg.Bridge.Addr),
			})
		}
	}

	if cfg.Loop.MaxTurns < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "loop.maxTurns",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Loop.MaxTurns),
		})
	}
	if cfg.Loop.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "loop.timeoutSeconds",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Loop.TimeoutSeconds),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validStyles := []string{"pretty", "json"}
	if cfg.Logging.Style != "" && !slices.Contains(validStyles, cfg.Logging.Style) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.style",
			Message: fmt.Sprintf("must be one of %v, got %q", validStyles, cfg.Logging.Style),
		})
	}

	return issues
}
