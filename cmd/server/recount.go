package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecountCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "recount",
		Short: "Rebuild every vote and comment counter from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			stats, err := a.counter.RecountAll(ctx)
			if err != nil {
				return fmt.Errorf("recount failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recounted %d targets, %d comment counts, %d failures\n",
				stats.Targets, stats.Comments, stats.Failures)
			if stats.Failures > 0 {
				return fmt.Errorf("%d counters could not be rebuilt", stats.Failures)
			}
			return nil
		},
	}
}
