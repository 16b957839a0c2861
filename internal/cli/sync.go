package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push the current collection to the remote store once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.Bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			n, err := a.Debts.Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d debts to %s\n", n, a.Orchestrator.RemoteName())
			return nil
		},
	}
}
