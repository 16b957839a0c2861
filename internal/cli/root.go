package cli

import (
	"context"
	"time"

	"gold_debts/internal/app"
	"gold_debts/internal/config"
	"gold_debts/internal/observability"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string

	// Bootstrap builds the application for a command; tests swap it out.
	Bootstrap func(ctx context.Context, opts *RootOptions) (*app.App, error)
}

// NewRootCommand creates the gold-debts command tree. Running it without a
// subcommand starts the server.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Bootstrap: bootstrap}
	return newRootCommand(opts)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	serve := NewServeCommand(opts)

	cmd := &cobra.Command{
		Use:           "gold-debts",
		Short:         "Debt ledger with a local cache and a remote document store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error), overrides LOG_LEVEL")

	cmd.AddCommand(serve)
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))

	return cmd
}

func bootstrap(ctx context.Context, opts *RootOptions) (*app.App, error) {
	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cfg, err := config.Init(setupCtx)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	return app.New(cfg, observability.NewLogger(level))
}

// closeApp gives background remote writes a bounded window to finish.
func closeApp(a *app.App) error {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	err := a.Close(ctx)
	_ = a.Logger.Sync()
	return err
}
