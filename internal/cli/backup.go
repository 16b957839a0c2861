package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewBackupCommand(opts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a JSON backup of the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.Bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			b, name, err := a.Backup.ExportJSON(cmd.Context())
			if err != nil {
				return err
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(append(b, '\n'))
				return err
			}
			if out == "" {
				out = name
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return fmt.Errorf("write backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup written to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "output file, - for stdout (default debts-backup-<date>.json)")
	return cmd
}
