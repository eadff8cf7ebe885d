package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/costline/costline/internal/aggregate"
)

// generateCSV writes the full cost breakdown plus a per-unit summary file.
// The detail file path is returned as the primary report.
func generateCSV(in Input, timestamp, outputDir string, log zerolog.Logger) (string, error) {
	detailPath := filepath.Join(outputDir, fmt.Sprintf("invoice_%s_%s.csv", in.Month, timestamp))
	if err := writeCSV(detailPath, detailRows(in)); err != nil {
		return "", err
	}

	summaryPath := filepath.Join(outputDir, fmt.Sprintf("invoice_summary_%s_%s.csv", in.Month, timestamp))
	if err := writeCSV(summaryPath, summaryRows(in)); err != nil {
		return "", err
	}

	log.Info().Str("report", detailPath).Str("summary", summaryPath).Msg("csv report written")
	return detailPath, nil
}

func detailRows(in Input) [][]string {
	rows := [][]string{{
		"Month", "Payer Account", "Payer Name", "Business Unit",
		"Date", "Service", "Amount (Unblended)", "Currency",
	}}
	for _, payer := range in.Payers {
		for _, rec := range payer.Records {
			rows = append(rows, []string{
				in.Month,
				payer.AccountID,
				payer.Name,
				payer.BusinessUnit,
				rec.Date,
				rec.Service,
				strconv.FormatFloat(rec.Amount, 'f', -1, 64),
				rec.Currency,
			})
		}
	}
	return rows
}

func summaryRows(in Input) [][]string {
	rows := [][]string{{"Business Unit", "Total Spend", "Account Count"}}
	in.Aggregate.Each(func(ua *aggregate.UnitAggregate) {
		rows = append(rows, []string{
			ua.Unit,
			fmt.Sprintf("%.2f", ua.Total),
			strconv.Itoa(len(ua.Accounts)),
		})
	})
	return rows
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}
