package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/costline/costline/internal/alert"
	"github.com/costline/costline/internal/audit"
	"github.com/costline/costline/internal/budget"
	"github.com/costline/costline/internal/extract"
	"github.com/costline/costline/internal/logging"
	"github.com/costline/costline/internal/mapping"
	"github.com/costline/costline/internal/run"
)

var (
	processMonth     string
	processReconcile bool
	processFormat    string
	processOutput    string
	processConfig    string
)

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVar(&processMonth, "month", "", "Target month (YYYY-MM). Defaults to current month.")
	processCmd.Flags().BoolVar(&processReconcile, "reconcile", false, "Run budget reconciliation")
	processCmd.Flags().StringVar(&processFormat, "format", "csv", "Output format (csv, html, json)")
	processCmd.Flags().StringVar(&processOutput, "output", "reports", "Output directory")
	processCmd.Flags().StringVar(&processConfig, "config", "config", "Config directory")
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the invoice processing pipeline",
	Long: "Extracts cost data for every configured payer account, aggregates by\n" +
		"business unit, optionally reconciles against budgets, renders a report,\n" +
		"and writes the run audit file.",
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logging.New()
	ctx := cmd.Context()

	switch processFormat {
	case "csv", "html", "json":
	default:
		return fmt.Errorf("invalid format %q (want csv, html, or json)", processFormat)
	}

	// Config problems degrade, they don't abort: an empty mapping means
	// everything lands in Unassigned, an empty budget means NO_BUDGET.
	mapper, err := mapping.Load(filepath.Join(processConfig, "accounts.yaml"))
	if err != nil {
		log.Warn().Err(err).Msg("accounts config unusable, continuing with empty mapping")
		mapper = mapping.New(nil)
	}
	if len(mapper.Payers()) == 0 {
		log.Warn().Str("dir", processConfig).Msg("no payer accounts configured")
	}

	budgets, err := budget.Load(filepath.Join(processConfig, "budgets.yaml"))
	if err != nil {
		log.Warn().Err(err).Msg("budgets config unusable, continuing without budgets")
		budgets = &budget.Config{Budgets: map[string]budget.UnitBudget{}}
	}

	client, err := extract.NewClient(ctx, extract.ClientOptions{})
	if err != nil {
		return err
	}

	processor := run.New(extract.New(client, log), mapper, budgets, log)
	processor.Alerts = alert.NewDispatcher(budgets.Alerts)

	chainLog, err := audit.Open(filepath.Join(processOutput, "audit.jsonl"))
	if err != nil {
		log.Warn().Err(err).Msg("chained audit log unavailable")
	} else {
		processor.ChainLog = chainLog
		defer chainLog.Close()
	}

	summary, err := processor.Process(ctx, run.Options{
		Month:     processMonth,
		Reconcile: processReconcile,
		Format:    processFormat,
		OutputDir: processOutput,
	})
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

func printSummary(s *run.Summary) {
	line := strings.Repeat("=", 60)
	fmt.Println()
	fmt.Println(line)
	fmt.Println("  Invoice Processing Summary")
	fmt.Println(line)
	fmt.Printf("  Month:              %s\n", s.Month)
	fmt.Printf("  Payers processed:   %d\n", s.PayerAccountsProcessed)
	fmt.Printf("  Business units:     %d\n", s.BusinessUnits)
	fmt.Printf("  Total spend:        %.2f\n", s.TotalSpend)
	fmt.Printf("  Processing time:    %.2fs\n", s.ElapsedSeconds)
	fmt.Printf("  Data checksum:      %s\n", s.DataChecksum)
	fmt.Printf("  Report:             %s\n", s.ReportFile)
	fmt.Println(line)
	fmt.Println()
}
