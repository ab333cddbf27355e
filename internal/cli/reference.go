package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aristath/fundrisk/internal/modules/risk"
)

type classRow struct {
	Class             risk.AssetClass `json:"class"`
	Code              string          `json:"code"`
	DefaultVolatility float64         `json:"default_volatility"`
	Factor            risk.RiskFactor `json:"factor"`
}

func newScenariosCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List the default stress scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios := risk.DefaultScenarios()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), scenarios)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Factor\tShock\tDescription")
			fmt.Fprintln(w, "------\t-----\t-----------")
			for _, s := range scenarios {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Factor, risk.FormatPct(s.Shock), s.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newClassesCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List the asset classes with their codes, default volatility and risk factor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			factors := risk.DefaultFactorMap()
			rows := make([]classRow, 0, len(risk.AssetClasses()))
			for _, c := range risk.AssetClasses() {
				rows = append(rows, classRow{
					Class:             c,
					Code:              c.Code(),
					DefaultVolatility: c.DefaultVolatility(),
					Factor:            factors.FactorOf(c),
				})
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rows)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Class\tCode\tVol (a.a.)\tFactor")
			fmt.Fprintln(w, "-----\t----\t----------\t------")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%.2f%%\t%s\n", r.Class, r.Code, r.DefaultVolatility*100, r.Factor)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
