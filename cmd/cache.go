package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/salesdash/pkg/geocode"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the geocode cache",
}

var cacheMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the geocode cache table for the configured driver",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cache, closeCache, err := initCache(ctx, cfg.Cache, false)
		if err != nil {
			return err
		}
		defer closeCache()

		m, ok := cache.(geocode.Migrator)
		if !ok {
			fmt.Printf("cache driver %q has nothing to migrate\n", cfg.Cache.Driver)
			return nil
		}
		if err := m.Migrate(ctx); err != nil {
			return err
		}
		zap.L().Info("geocode cache migrated", zap.String("driver", cfg.Cache.Driver))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheMigrateCmd)
	rootCmd.AddCommand(cacheCmd)
}
