package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/costline/costline/internal/aggregate"
	"github.com/costline/costline/internal/reconcile"
)

type jsonMetadata struct {
	Month         string `json:"month"`
	GeneratedAt   string `json:"generated_at"`
	PayerAccounts int    `json:"payer_accounts"`
}

type jsonUnitSummary struct {
	Total    float64 `json:"total"`
	Accounts int     `json:"accounts"`
}

type jsonReport struct {
	Metadata       jsonMetadata               `json:"metadata"`
	Summary        map[string]jsonUnitSummary `json:"summary"`
	Reconciliation *reconcile.Result          `json:"reconciliation"`
}

// generateJSON writes the machine-readable report.
func generateJSON(in Input, timestamp, outputDir string, log zerolog.Logger) (string, error) {
	path := filepath.Join(outputDir, fmt.Sprintf("invoice_%s_%s.json", in.Month, timestamp))

	rpt := jsonReport{
		Metadata: jsonMetadata{
			Month:         in.Month,
			GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
			PayerAccounts: len(in.Payers),
		},
		Summary:        make(map[string]jsonUnitSummary, in.Aggregate.Len()),
		Reconciliation: in.Reconciliation,
	}
	in.Aggregate.Each(func(ua *aggregate.UnitAggregate) {
		rpt.Summary[ua.Unit] = jsonUnitSummary{
			Total:    ua.Total,
			Accounts: len(ua.Accounts),
		}
	})

	data, err := json.MarshalIndent(rpt, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: marshal json report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}

	log.Info().Str("report", path).Msg("json report written")
	return path, nil
}
