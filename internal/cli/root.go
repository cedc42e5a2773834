// Package cli implements the toolbridge command tree.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oresand/toolbridge/internal/agent"
	"github.com/oresand/toolbridge/internal/config"
	"github.com/oresand/toolbridge/internal/llm"
	"github.com/oresand/toolbridge/internal/logging"
	"github.com/oresand/toolbridge/internal/prefs"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toolbridge",
		Short: "toolbridge — LLM tool-calling bridge for host applications",
		Long: "toolbridge connects a host application's registered tools to an LLM.\n" +
			"The model decides which tools to call; toolbridge executes them against\n" +
			"the host over WebSocket and loops until the model answers in plain text.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			level := logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			log = logging.New(nil, level, cfg.Logging.Style)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.toolbridge/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newToolsCmd())
	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newInvokeCmd())
	cmd.AddCommand(newSuggestCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newTracesCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig reads the config file, falling back to defaults when it
// is missing or broken.
func loadConfig() config.Config {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		log.Warn().Err(err).Msg("falling back to default config")
		return config.Defaults()
	}
	return cfg
}

// openPrefs opens the preferences database. Callers must Close the
// returned DB.
func openPrefs() (*prefs.DB, *prefs.Store, error) {
	if err := paths.EnsureDirs(); err != nil {
		return nil, nil, err
	}
	db, err := prefs.Open(paths.Prefs, log)
	if err != nil {
		return nil, nil, err
	}
	return db, prefs.NewStore(db), nil
}

// buildProvider constructs the configured provider. Stored preferences
// override the config file so interactive selections stick.
func buildProvider(cfg config.Config, store *prefs.Store) (llm.Provider, string, error) {
	providerName := cfg.Provider
	model := cfg.Model

	if store != nil {
		if v, err := store.Get(prefs.KeyProvider); err == nil && v != "" {
			providerName = v
		}
		if v, err := store.Get(prefs.KeyModel); err == nil && v != "" {
			model = v
		}
	}

	switch providerName {
	case config.ProviderGemini:
		apiKey := cfg.Gemini.APIKey
		if store != nil && apiKey == "" {
			if v, err := store.Get(prefs.KeyAPIKey); err == nil {
				apiKey = v
			}
		}
		if apiKey == "" {
			return nil, "", fmt.Errorf("gemini api key is not configured")
		}
		if model == "" {
			model = llm.FallbackGeminiModels[0].Name
		}
		return llm.NewGeminiProvider(apiKey, cfg.Gemini.BaseURL, log), model, nil

	case config.ProviderOllama:
		baseURL := cfg.Ollama.BaseURL
		if store != nil {
			if v, err := store.Get(prefs.KeyOllamaURL); err == nil && v != "" {
				baseURL = v
			}
		}
		if model == "" {
			model = cfg.Ollama.Model
		}
		return llm.NewOllamaProvider(baseURL, cfg.Ollama.Model, log), model, nil

	default:
		return nil, "", fmt.Errorf("unknown provider %q", providerName)
	}
}

// loopConfig converts the config file's loop section.
func loopConfig(cfg config.Config) agent.LoopConfig {
	return agent.LoopConfig{
		MaxTurns: cfg.Loop.MaxTurns,
		Timeout:  time.Duration(cfg.Loop.TimeoutSeconds) * time.Second,
	}
}
