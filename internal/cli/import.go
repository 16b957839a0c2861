package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"gold_debts/internal/adapters/opener"
	"gold_debts/internal/services/importer"

	"github.com/spf13/cobra"
)

func NewImportCommand(opts *RootOptions) *cobra.Command {
	var (
		kind  string
		batch int
	)

	cmd := &cobra.Command{
		Use:   "import <file|url>",
		Short: "Create debts from a CSV or XLSX spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.Bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			svc := *a.Importer
			src := args[0]
			if !strings.Contains(src, "://") {
				// plain arguments are local files, even when a default bucket is configured
				abs, err := filepath.Abs(src)
				if err != nil {
					return err
				}
				svc.Opener = opener.NewFileOpener("")
				src = abs
			}

			res, err := svc.Import(cmd.Context(), importer.Request{Type: kind, FilePath: src, BatchSize: batch})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows from %s (%s)\n", res.RowsProcessed, args[0], res.Format)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", "debts", "import type")
	cmd.Flags().IntVar(&batch, "batch", 0, "rows per batch (default IMPORT_BATCH_SIZE)")
	return cmd
}
