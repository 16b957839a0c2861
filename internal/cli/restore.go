package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewRestoreCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace the collection with the contents of a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.Bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open backup: %w", err)
			}
			defer f.Close()

			n, err := a.Backup.RestoreJSON(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d debts\n", n)
			return nil
		},
	}
}
