package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oresand/toolbridge/internal/agent"
)

func newSuggestCmd() *cobra.Command {
	var hostWait time.Duration

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Generate an example prompt for the host's current tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := loadConfig()
			db, store, err := openPrefs()
			if err != nil {
				return err
			}
			defer db.Close()

			provider, model, err := buildProvider(cfg, store)
			if err != nil {
				return err
			}

			srv, err := startBridge(ctx, cfg, hostWait)
			if err != nil {
				return err
			}
			tools := currentTools(ctx, srv)
			if len(tools) == 0 {
				fmt.Println("The host advertises no tools; nothing to suggest.")
				return nil
			}

			suggester := agent.NewSuggester(provider, model, log)
			suggestion := suggester.Suggest(ctx, tools)
			if suggestion == "" {
				return fmt.Errorf("no suggestion produced")
			}
			fmt.Println(suggestion)
			return nil
		},
	}

	cmd.Flags().DurationVar(&hostWait, "host-wait", 30*time.Second, "how long to wait for the host application to connect")
	return cmd
}
