// Package report renders the pipeline output for stakeholders: CSV for
// spreadsheets, HTML for people, JSON for machines. Renderers are pure
// consumers of the aggregation and reconciliation output; a write failure
// here is fatal because nobody should receive a partial report file.
package report

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/costline/costline/internal/aggregate"
	"github.com/costline/costline/internal/model"
	"github.com/costline/costline/internal/reconcile"
)

// Formats accepted by Generate.
const (
	FormatCSV  = "csv"
	FormatHTML = "html"
	FormatJSON = "json"
)

// Input carries everything a renderer needs.
type Input struct {
	Payers         []model.PayerCosts
	Aggregate      *aggregate.Result
	Reconciliation *reconcile.Result // nil when reconciliation was skipped
	Month          string
}

// Generate writes a report in the requested format under outputDir and
// returns the path of the primary file produced.
func Generate(in Input, format, outputDir string, log zerolog.Logger) (string, error) {
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return "", fmt.Errorf("report: create output directory: %w", err)
	}

	timestamp := time.Now().UTC().Format("20060102_150405")

	switch format {
	case FormatCSV:
		return generateCSV(in, timestamp, outputDir, log)
	case FormatHTML:
		return generateHTML(in, timestamp, outputDir, log)
	case FormatJSON:
		return generateJSON(in, timestamp, outputDir, log)
	default:
		return "", fmt.Errorf("report: unknown format %q", format)
	}
}
