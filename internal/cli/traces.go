package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newTracesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "traces",
		Short: "Inspect saved session traces",
	}

	cmd.AddCommand(newTracesListCmd())
	cmd.AddCommand(newTracesShowCmd())
	return cmd
}

func newTracesListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved traces, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := openPrefs()
			if err != nil {
				return err
			}
			defer db.Close()

			traces, err := store.ListTraces(limit)
			if err != nil {
				return err
			}
			if len(traces) == 0 {
				fmt.Println("No saved traces.")
				return nil
			}
			for _, tr := range traces {
				fmt.Printf("%s  %s  %s/%s\n",
					tr.ID, tr.CreatedAt.Format(time.DateTime), tr.Provider, tr.Model)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of traces to list")
	return cmd
}

func newTracesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved trace's entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := openPrefs()
			if err != nil {
				return err
			}
			defer db.Close()

			rec, err := store.GetTrace(args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("trace %q not found", args[0])
			}
			fmt.Println(rec.Entries)
			return nil
		},
	}
}
