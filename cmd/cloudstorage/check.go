package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/cloudstorage/pkg/health"
)

func newCheckCommand(c *cli) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Open every configured dependency and report its health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, c.cfg, c.log, true)
			if err != nil {
				return err
			}
			defer func() { _ = rt.close(ctx) }()

			report := health.Run(ctx, rt.checks(), health.WithTimeout(timeout), health.WithLogger(c.log))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "driver:      %s\n", c.cfg.Storage.Driver)
			fmt.Fprintf(out, "container:   %s\n", c.cfg.Storage.Container)
			fmt.Fprintf(out, "signed URLs: %t (requested %t)\n",
				rt.backend.AdvancedSecureURLSupport(), c.cfg.Storage.UseSecureURLs)
			for _, name := range report.Names() {
				check := report.Checks[name]
				fmt.Fprintf(out, "%-12s %s %s", name+":", check.Status, check.Duration)
				if check.Error != "" {
					fmt.Fprintf(out, " (%s)", check.Error)
				}
				fmt.Fprintln(out)
			}
			return report.Err()
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall check timeout")
	return cmd
}
