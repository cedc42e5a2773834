package cli

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oresand/toolbridge/internal/schema"
	"github.com/oresand/toolbridge/internal/tool"
)

func newInvokeCmd() *cobra.Command {
	var hostWait time.Duration

	cmd := &cobra.Command{
		Use:   "invoke <tool> [args-json]",
		Short: "Execute one host tool directly, bypassing the model",
		Long: "Executes a tool against the connected host. When args-json is omitted,\n" +
			"an example argument object is synthesized from the tool's input schema.",
		Args: cobra.RangeArgs(1, 2),
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

			name := args[0]
			desc, ok := set.Find(name)
			if !ok {
				return fmt.Errorf("host does not advertise tool %q", name)
			}

			var argsJSON string
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("args must be valid JSON")
				}
				argsJSON = args[1]
			} else {
				argsJSON = string(schema.ExampleJSON([]byte(desc.SchemaOrDefault())))
				fmt.Printf("Using synthesized args: %s\n", argsJSON)
			}

			result, err := tool.ExecuteAwait(ctx, srv, name, argsJSON)
			if err != nil {
				return err
			}
			fmt.Println(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&hostWait, "host-wait", 30*time.Second, "how long to wait for the host application to connect")
	return cmd
}
