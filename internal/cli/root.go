// Package cli implements the riskctl command line: offline risk calculations
// from request files, plus the reference tables the engine uses.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/fundrisk/pkg/logger"
)

type rootOptions struct {
	logLevel string
}

// NewRootCommand builds the riskctl command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "riskctl",
		Short:   "Parametric VaR and stress reports for fund allocations",
		Version: version,
		Long: `riskctl computes Delta-Normal VaR, stress impacts and the regulatory
risk answers for a fund allocation described in a YAML or JSON file.

Examples:
  riskctl calc fund.yaml
  riskctl calc fund.json --format json
  riskctl calc - --confidence 99% < fund.yaml
  riskctl scenarios
  riskctl classes`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")

	rootCmd.AddCommand(newCalcCommand(opts))
	rootCmd.AddCommand(newScenariosCommand())
	rootCmd.AddCommand(newClassesCommand())

	return rootCmd
}

// commandLogger logs to stderr so reports on stdout stay pipeable.
func (o *rootOptions) commandLogger(cmd *cobra.Command) zerolog.Logger {
	return logger.New(logger.Config{
		Level:  o.logLevel,
		Pretty: true,
		Output: cmd.ErrOrStderr(),
	})
}
