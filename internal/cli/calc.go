package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aristath/fundrisk/internal/modules/risk"
)

type calcOptions struct {
	format         string
	horizon        int
	confidence     string
	useCorrelation bool
	autoCash       bool
}

func newCalcCommand(root *rootOptions) *cobra.Command {
	opts := &calcOptions{}

	cmd := &cobra.Command{
		Use:   "calc <request-file|->",
		Short: "Compute VaR, stress impacts and regulatory answers",
		Long: `Reads a calculation request (YAML, or JSON when the file ends in .json)
and prints the report. Use "-" to read YAML or JSON from stdin.

Flags override the matching request fields when set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			opts.apply(cmd, &req)

			engine := risk.NewEngine(risk.Defaults{}, root.commandLogger(cmd))
			report, err := engine.Calculate(req)
			if err != nil {
				return fmt.Errorf("invalid request: %w", err)
			}

			switch opts.format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), report)
			case "table":
				return writeReport(cmd.OutOrStdout(), report)
			}
			return fmt.Errorf("unknown format %q (expected table or json)", opts.format)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "table", "Output format (table|json)")
	cmd.Flags().IntVar(&opts.horizon, "horizon", 0, "Horizon in trading days")
	cmd.Flags().StringVar(&opts.confidence, "confidence", "", "Confidence level (95% or 99%)")
	cmd.Flags().BoolVar(&opts.useCorrelation, "correlation", false, "Aggregate with the correlation matrix")
	cmd.Flags().BoolVar(&opts.autoCash, "auto-cash", false, "Fill a shortfall below 100% with cash")

	return cmd
}

func (o *calcOptions) apply(cmd *cobra.Command, req *risk.Request) {
	flags := cmd.Flags()
	if flags.Changed("horizon") {
		req.HorizonDays = o.horizon
	}
	if flags.Changed("confidence") {
		req.Confidence = o.confidence
	}
	if flags.Changed("correlation") {
		req.UseCorrelation = o.useCorrelation
	}
	if flags.Changed("auto-cash") {
		req.AutoCompleteCash = o.autoCash
	}
}

// loadRequest decodes a request file. JSON is chosen by extension; everything
// else, stdin included, goes through the YAML decoder, which also accepts JSON.
func loadRequest(path string, stdin io.Reader) (risk.Request, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return risk.Request{}, fmt.Errorf("failed to read request %s: %w", path, err)
	}

	var req risk.Request
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &req); err != nil {
			return risk.Request{}, fmt.Errorf("failed to parse JSON request %s: %w", path, err)
		}
		return req, nil
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return risk.Request{}, fmt.Errorf("failed to parse YAML request %s: %w", path, err)
	}
	return req, nil
}

func writeReport(out io.Writer, r *risk.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Fund:\t%s\n", fundLine(r.Fund))
	fmt.Fprintf(w, "NAV:\t%s\n", formatMoney(r.NAV))
	fmt.Fprintf(w, "Horizon:\t%d days @ %s (z=%.6f)\n", r.HorizonDays, r.Confidence, r.Z)
	fmt.Fprintf(w, "Aggregation:\t%s\n", aggregationLabel(r.CorrelationUsed))
	if r.AutoCompleted {
		fmt.Fprintf(w, "Cash:\tauto-completed to %.2f%%\n", r.TotalWeightPct)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Class\tWeight\tVol (a.a.)\tVaR % Pos\tVaR % NAV\tVaR")
	fmt.Fprintln(w, "-----\t------\t----------\t---------\t---------\t---")
	for _, p := range r.Positions {
		fmt.Fprintf(w, "%s\t%.2f%%\t%s\t%s\t%s\t%s\n",
			p.Class, p.WeightPct, risk.FormatPct(p.AnnualVolatility),
			risk.FormatPct(p.PositionVaRPct), risk.FormatPct(p.VaRPct), formatMoney(p.VaRCurrency))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Portfolio VaR:\t%s\t%s\n", risk.FormatPct(r.Portfolio.VaRPct), formatMoney(r.Portfolio.VaRCurrency))
	fmt.Fprintf(w, "Undiversified:\t%s\n", risk.FormatPct(r.Portfolio.UndiversifiedPct))
	fmt.Fprintf(w, "Diversification:\t%s\n", risk.FormatPct(r.Portfolio.DiversificationPct))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Factor\tShock\tImpact\tImpact (R$)\tScenario")
	fmt.Fprintln(w, "------\t-----\t------\t-----------\t--------")
	for _, s := range r.Stress {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.Factor, risk.FormatPct(s.Shock), risk.FormatPct(s.ImpactPct), formatMoney(s.ImpactCurrency), s.Description)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "#\tAnswer\tQuestion")
	fmt.Fprintln(w, "-\t------\t--------")
	for i, a := range r.Answers {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, a.Text, truncate(a.Question, 70))
	}

	return w.Flush()
}

func fundLine(f risk.FundInfo) string {
	line := f.Name
	if f.CNPJ != "" {
		line += " (" + f.CNPJ + ")"
	}
	if f.ReferenceDate != "" {
		line += " ref. " + f.ReferenceDate
	}
	return line
}

func aggregationLabel(correlated bool) string {
	if correlated {
		return risk.ModelClassCorrelated
	}
	return risk.ModelClassUncorrelated
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
