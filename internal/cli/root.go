// Package cli wires the costline subcommands.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "costline",
	Short: "Automated cloud invoice processing for multi-payer environments",
	Long: "Extracts Cost Explorer billing data per payer account, aggregates it by\n" +
		"business unit, reconciles against budgets, and emits a report plus a\n" +
		"tamper-evident audit trail.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
