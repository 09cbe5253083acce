package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/text-extractor/internal/cache"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the cache and database are reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		out := cmd.OutOrStdout()

		a, err := openStore(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("health: FAIL (%w)", err)
		}
		defer a.close(ctx)

		if a.db != nil {
			if err := a.db.HealthCheck(ctx, time.Second, logger); err != nil {
				return fmt.Errorf("database health: FAIL (%w)", err)
			}
			fmt.Fprintf(out, "database (%s): OK\n", a.db.Dialect)
		}

		var entries, poisoned int
		err = a.store.List(ctx, func(_ string, e cache.Entry) error {
			entries++
			if e.Poisoned() {
				poisoned++
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("cache health: FAIL (%w)", err)
		}
		fmt.Fprintf(out, "cache (%s): OK, %d entries, %d failed\n", cfg.Cache.Driver, entries, poisoned)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
