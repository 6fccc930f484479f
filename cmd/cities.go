package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "List the cities known to the data API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cities, err := newDashClient(cfg).Cities(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "cities")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(cities)
		}
		for _, c := range cities {
			fmt.Println(c)
		}
		return nil
	},
}

func init() {
	citiesCmd.Flags().Bool("json", false, "print as a JSON array")
	rootCmd.AddCommand(citiesCmd)
}
