package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oresand/toolbridge/internal/schema"
	"github.com/oresand/toolbridge/internal/tool"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the host's advertised tools",
	}

	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsExportCmd())
	return cmd
}

func newToolsListCmd() *cobra.Command {
	var hostWait time.Duration

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tools the host currently advertises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, err := startBridge(ctx, loadConfig(), hostWait)
			if err != nil {
				return err
			}
			set, err := srv.List(ctx)
			if err != nil {
				return err
			}

			if len(set) == 0 {
				fmt.Println("No tools advertised.")
				return nil
			}
			for _, d := range set {
				fmt.Printf("%s\n  %s\n", d.Name, d.Description)
				fmt.Printf("  example args: %s\n", schema.ExampleJSON([]byte(d.SchemaOrDefault())))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&hostWait, "host-wait", 30*time.Second, "how long to wait for the host application to connect")
	return cmd
}

func newToolsExportCmd() *cobra.Command {
	var (
		format   string
		hostWait time.Duration
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the tool listing for sharing or review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, err := startBridge(ctx, loadConfig(), hostWait)
			if err != nil {
				return err
			}
			set, err := srv.List(ctx)
			if err != nil {
				return err
			}

			switch format {
			case "prototext":
				fmt.Println(tool.ExportPrototext(set))
			case "json":
				out, err := tool.ExportJSON(set)
				if err != nil {
					return err
				}
				fmt.Println(string(out))
			default:
				return fmt.Errorf("unknown format %q (want prototext or json)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "prototext", "export format (prototext, json)")
	cmd.Flags().DurationVar(&hostWait, "host-wait", 30*time.Second, "how long to wait for the host application to connect")
	return cmd
}
