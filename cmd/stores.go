package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/salesdash/internal/geomap"
	"github.com/sells-group/salesdash/internal/model"
	"github.com/sells-group/salesdash/internal/storeanalysis"
	"github.com/sells-group/salesdash/pkg/dashapi"
)

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Store performance analysis and location mapping",
}

var storesAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze physical stores and expansion candidates",
	Long:  "Reads a transactions file (--csv, .csv or .xlsx) or calls the store analysis API, then prints physical store aggregates and tiered recommendations.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("csv")
		format, _ := cmd.Flags().GetString("format")

		data, err := loadStoreData(cmd.Context(), path, newDashClient(cfg))
		if err != nil {
			return err
		}
		return writeStoreData(os.Stdout, data, format)
	},
}

var storesMapCmd = &cobra.Command{
	Use:   "map",
	Short: "Geocode physical stores and top recommendations",
	Long:  "Resolves every physical store and the top candidates of each tier to coordinates. Cities that cannot be geocoded are placed at the configured fallback centroid.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("map"); err != nil {
			return err
		}
		ctx := cmd.Context()

		path, _ := cmd.Flags().GetString("csv")
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		if format == "shp" && out == "" {
			return eris.New("stores map: --out is required for shp output")
		}

		data, err := loadStoreData(ctx, path, newDashClient(cfg))
		if err != nil {
			return err
		}

		env, err := initGeocoder(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		locs, err := geomap.NewAggregator(env.Geocoder, geomapConfig(cfg)).Aggregate(ctx, *data)
		if err != nil {
			return err
		}
		return writeLocations(locs, format, out)
	},
}

// loadStoreData analyzes path when set, otherwise asks the API.
func loadStoreData(ctx context.Context, path string, api dashapi.Client) (*model.StoreData, error) {
	if path != "" {
		return storeanalysis.AnalyzeFile(ctx, path)
	}
	data, err := api.StoreAnalysis(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "stores: analyze")
	}
	return data, nil
}

func writeStoreData(w io.Writer, data *model.StoreData, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return eris.Wrap(err, "stores: encode yaml")
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	default:
		return eris.Errorf("stores: unknown format %q", format)
	}
}

func writeLocations(locs model.Locations, format, out string) error {
	switch format {
	case "shp":
		return geomap.WriteShapefile(out, locs)
	case "geojson", "json", "":
	default:
		return eris.Errorf("stores map: unknown format %q", format)
	}

	w := io.Writer(os.Stdout)
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return eris.Wrap(err, "stores map: create output")
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	if format == "geojson" {
		return geomap.WriteGeoJSON(w, locs)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(locs)
}

func init() {
	storesAnalyzeCmd.Flags().String("csv", "", "transactions file (.csv or .xlsx); default calls the API")
	storesAnalyzeCmd.Flags().String("format", "json", "output format: json, yaml")

	storesMapCmd.Flags().String("csv", "", "transactions file (.csv or .xlsx); default calls the API")
	storesMapCmd.Flags().String("format", "json", "output format: json, geojson, shp")
	storesMapCmd.Flags().String("out", "", "output path (required for shp)")

	storesCmd.AddCommand(storesAnalyzeCmd)
	storesCmd.AddCommand(storesMapCmd)
	rootCmd.AddCommand(storesCmd)
}
