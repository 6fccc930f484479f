package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/salesdash/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "salesdash",
	Short: "Retail sales dashboard backend",
	Long: `Filters, sorts and pages sales reports from the dashboard data API (report, cities),
analyzes store performance from a transactions CSV (stores analyze), geocodes physical
stores and expansion candidates into GeoJSON or shapefiles (stores map), prepares the
geocode cache (cache migrate) and serves it all over HTTP (serve).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
