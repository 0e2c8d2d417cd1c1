package main

import (
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/cloudstorage/internal/config"
	"github.com/dmitrymomot/cloudstorage/internal/httpapi"
	"github.com/dmitrymomot/cloudstorage/pkg/logger"
)

// cli carries state shared by subcommands. It is filled by the root
// command's PersistentPreRunE.
type cli struct {
	cfg      config.Config
	log      *slog.Logger
	envFiles []string
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:           "cloudstorage",
		Short:         "Provider-agnostic file storage for resource uploads",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.envFiles...)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.log = newLogger(cmd.ErrOrStderr(), cfg)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			logger.Flush(2 * time.Second)
		},
	}
	cmd.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", nil, "dotenv files to load before reading the environment (default .env)")

	cmd.AddCommand(
		newServeCommand(c),
		newCheckCommand(c),
		newPutCommand(c),
		newURLCommand(c),
		newRemoveCommand(c),
		newMigrateCommand(c),
		newReconcileCommand(c),
	)
	return cmd
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	return logger.NewWithWriter(w, cfg.Logger,
		logger.ResourceIDExtractor(),
		httpapi.RequestIDExtractor(),
	)
}
