package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.Bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			if s3c := a.Config.S3; s3c != nil {
				if err := s3c.EnsureBucket(cmd.Context()); err != nil {
					a.Logger.Warn("backup bucket unavailable", zap.String("bucket", s3c.Bucket), zap.Error(err))
				}
			}
			if err := a.Config.CheckConnections(cmd.Context()); err != nil {
				// the local cache keeps the app usable; reads fall back to it
				a.Logger.Warn("connection check failed", zap.Error(err))
			}
			return a.Server().Run(cmd.Context())
		},
	}
}
