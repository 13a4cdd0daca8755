package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/property-advisor/pkg/realestate"
)

var (
	affordPrice  float64
	affordIncome float64
	affordDown   float64
	affordFormat string
)

var affordCmd = &cobra.Command{
	Use:   "afford",
	Short: "Calculate mortgage affordability for a price and income",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := realestate.AffordabilityInput{Price: affordPrice, AnnualIncome: affordIncome}
		if cmd.Flags().Changed("down") {
			in.DownPayment = &affordDown
		}

		a, err := realestate.CalculateAffordability(in)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), affordFormat, a)
	},
}

func init() {
	affordCmd.Flags().Float64Var(&affordPrice, "price", 0, "property price")
	affordCmd.Flags().Float64Var(&affordIncome, "income", 0, "annual household income")
	affordCmd.Flags().Float64Var(&affordDown, "down", 0, "down payment (default 20% of price)")
	affordCmd.Flags().StringVar(&affordFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(affordCmd)
}
