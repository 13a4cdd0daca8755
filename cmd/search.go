package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/property-advisor/pkg/realestate"
)

var (
	searchParams realestate.SearchParams
	searchFormat string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search listings directly through the data adapter",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("search"); err != nil {
			return err
		}

		data := newDataClient(cfg, nil, newCache(cfg), newBreakers(cfg))
		listings, err := data.SearchListings(cmd.Context(), searchParams)
		if err != nil {
			return eris.Wrap(err, "search listings")
		}
		return writeOutput(cmd.OutOrStdout(), searchFormat, listings)
	},
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchParams.Location, "location", "", "city, state or zip code")
	f.IntVar(&searchParams.MinPrice, "min-price", 0, "minimum price")
	f.IntVar(&searchParams.MaxPrice, "max-price", 0, "maximum price")
	f.IntVar(&searchParams.Bedrooms, "bedrooms", 0, "desired bedrooms")
	f.Float64Var(&searchParams.Bathrooms, "bathrooms", 0, "desired bathrooms")
	f.StringVar(&searchParams.PropertyType, "type", "", "house, condo, townhouse or apartment")
	f.StringVar(&searchFormat, "format", "json", "output format: json or yaml")
	_ = searchCmd.MarkFlagRequired("location")
	rootCmd.AddCommand(searchCmd)
}
