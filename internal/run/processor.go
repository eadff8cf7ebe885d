// Package run sequences the invoice pipeline: extract per payer, aggregate
// by business unit, reconcile against budgets, validate every stage, render
// the report, and write the audit trail. One Processor invocation is one
// independent run; nothing is shared across runs.
package run

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/costline/costline/internal/aggregate"
	"github.com/costline/costline/internal/alert"
	"github.com/costline/costline/internal/audit"
	"github.com/costline/costline/internal/budget"
	"github.com/costline/costline/internal/mapping"
	"github.com/costline/costline/internal/model"
	"github.com/costline/costline/internal/reconcile"
	"github.com/costline/costline/internal/report"
	"github.com/costline/costline/internal/validate"
)

// CostSource yields normalized, dust-filtered cost records for one payer
// account and month. Satisfied by extract.Extractor; faked in tests. An
// empty result means no spend, not an error.
type CostSource interface {
	MonthlyCosts(ctx context.Context, payerAccountID, month string) ([]model.CostRecord, error)
}

// Options select what one run does.
type Options struct {
	Month     string // "YYYY-MM"; empty means current month
	Reconcile bool
	Format    string // csv, html, json
	OutputDir string
}

// Summary is the run result envelope — the canonical record of what went
// in and what came out. Its shape is the audited contract consumed by the
// report renderers and the audit-file writer; change it carefully.
type Summary struct {
	RunID                  string            `json:"run_id"`
	Month                  string            `json:"month"`
	PayerAccountsProcessed int               `json:"payer_accounts_processed"`
	BusinessUnits          int               `json:"business_units"`
	TotalSpend             float64           `json:"total_spend"`
	Reconciliation         *reconcile.Result `json:"reconciliation"`
	ReportFile             string            `json:"report_file"`
	ElapsedSeconds         float64           `json:"elapsed_seconds"`
	DataChecksum           string            `json:"data_checksum"`
	Validation             validate.Summary  `json:"validation"`
	AuditTrail             []audit.Entry     `json:"audit_trail"`
}

// Processor wires the pipeline's collaborators together.
type Processor struct {
	Source  CostSource
	Mapper  *mapping.Mapper
	Budgets *budget.Config
	Log     zerolog.Logger

	// ChainLog, when set, mirrors the run's audit trail into a durable
	// hash-chained JSONL log. Best-effort: chain write failures are logged
	// but do not abort the run.
	ChainLog *audit.Log

	// Alerts, when non-nil, receives overrun and validation-failure events.
	Alerts *alert.Dispatcher

	now func() time.Time
}

// New returns a Processor over the given collaborators.
func New(source CostSource, mapper *mapping.Mapper, budgets *budget.Config, log zerolog.Logger) *Processor {
	return &Processor{
		Source:  source,
		Mapper:  mapper,
		Budgets: budgets,
		Log:     log,
		now:     time.Now,
	}
}

// Process runs the full pipeline and returns the result envelope.
// Upstream data problems degrade to validation issues; only output-side
// failures (report or audit file writes) abort with an error.
func (p *Processor) Process(ctx context.Context, opts Options) (*Summary, error) {
	start := p.now()
	runID := fmt.Sprintf("%s_%s", start.UTC().Format("20060102_150405"), shortID())

	month := opts.Month
	if month == "" {
		month = start.UTC().Format("2006-01")
	}

	trail := &audit.Trail{}
	validator := validate.New(p.Log)

	p.Log.Info().Str("run_id", runID).Str("month", month).Msg("starting invoice processing")
	p.record(trail, runID, "STARTED", fmt.Sprintf("Processing month: %s", month))

	// Step 1: extract cost data per payer account. This is the slow part —
	// the Cost Explorer API is rate limited and in no hurry.
	payers := p.Mapper.Payers()
	p.Log.Info().Int("payers", len(payers)).Msg("step 1/4: extracting cost data")

	allRecords := make([]model.CostRecord, 0)
	payerCosts := make([]model.PayerCosts, 0, len(payers))
	for _, meta := range payers {
		p.Log.Info().Str("payer", meta.AccountID).Str("name", meta.Name).Msg("extracting costs")

		records, err := p.Source.MonthlyCosts(ctx, meta.AccountID, month)
		if err != nil {
			// Observe, don't block: the payer contributes nothing and the
			// gap shows up as a cost-data validation failure.
			p.Log.Error().Err(err).Str("payer", meta.AccountID).Msg("extraction failed")
			records = nil
		}

		result := validator.CostData(records, meta.AccountID)
		p.alertOnFail(result, "cost_data", runID, month)

		payerCosts = append(payerCosts, model.PayerCosts{
			AccountID:    meta.AccountID,
			Name:         meta.Name,
			BusinessUnit: p.Mapper.BusinessUnit(meta.AccountID),
			Records:      records,
		})
		allRecords = append(allRecords, records...)
	}
	p.record(trail, runID, "EXTRACTED", fmt.Sprintf("Processed %d payer account(s)", len(payers)))

	// Step 2: aggregate by business unit.
	p.Log.Info().Msg("step 2/4: mapping costs to business units")
	agg := aggregate.ByBusinessUnit(payerCosts)
	p.record(trail, runID, "MAPPED", fmt.Sprintf("Mapped to %d business unit(s)", agg.Len()))

	aggResult := validator.Aggregation(agg)
	p.alertOnFail(aggResult, "aggregation", runID, month)

	// Step 3: reconcile against budgets (optional).
	var rec *reconcile.Result
	if opts.Reconcile {
		p.Log.Info().Msg("step 3/4: reconciling against budgets")
		rec = reconcile.Reconcile(agg, p.Budgets, month, p.Log)
		p.record(trail, runID, "RECONCILED", fmt.Sprintf("Variances found: %d", rec.TotalVariances))

		recResult := validator.Reconciliation(rec)
		p.alertOnFail(recResult, "reconciliation", runID, month)
		p.alertOverruns(rec, runID)
	} else {
		p.Log.Info().Msg("step 3/4: skipping reconciliation (not requested)")
	}

	// Step 4: render the report. Failure here is fatal — nothing should
	// consume a partial report file.
	p.Log.Info().Str("format", opts.Format).Msg("step 4/4: generating report")
	reportFile, err := report.Generate(report.Input{
		Payers:         payerCosts,
		Aggregate:      agg,
		Reconciliation: rec,
		Month:          month,
	}, opts.Format, opts.OutputDir, p.Log)
	if err != nil {
		return nil, err
	}

	elapsed := p.now().Sub(start)
	p.record(trail, runID, "COMPLETED", fmt.Sprintf("Elapsed: %.2fs", elapsed.Seconds()))

	summary := &Summary{
		RunID:                  runID,
		Month:                  month,
		PayerAccountsProcessed: len(payers),
		BusinessUnits:          agg.Len(),
		TotalSpend:             agg.TotalSpend(),
		Reconciliation:         rec,
		ReportFile:             reportFile,
		ElapsedSeconds:         math.Round(elapsed.Seconds()*100) / 100,
		DataChecksum:           validate.Checksum(allRecords),
		Validation:             validator.Summary(),
		AuditTrail:             trail.Entries(),
	}

	if err := writeAuditFile(summary, opts.OutputDir, runID); err != nil {
		return nil, err
	}

	p.Log.Info().
		Float64("elapsed_seconds", summary.ElapsedSeconds).
		Str("report", reportFile).
		Msg("processing complete")

	return summary, nil
}

// record appends to the in-run trail and mirrors into the chained log.
func (p *Processor) record(trail *audit.Trail, runID, event, detail string) {
	entry := trail.Append(event, detail)
	p.Log.Debug().Str("event", event).Str("detail", detail).Msg("audit")

	if p.ChainLog != nil {
		entry.RunID = runID
		if err := p.ChainLog.Record(entry); err != nil {
			p.Log.Warn().Err(err).Msg("chained audit log write failed")
		}
	}
}

func (p *Processor) alertOnFail(result validate.Result, stage, runID, month string) {
	if p.Alerts == nil || result.Status != model.CheckFail {
		return
	}
	p.Alerts.Dispatch(alert.AlertEvent{
		Timestamp: p.now().UTC().Format(time.RFC3339),
		RunID:     runID,
		Month:     month,
		Type:      alert.EventValidationFail,
		Stage:     stage,
		Detail:    strings.Join(result.Issues, "; "),
	})
}

func (p *Processor) alertOverruns(rec *reconcile.Result, runID string) {
	if p.Alerts == nil {
		return
	}
	for _, unit := range rec.Order() {
		r := rec.Units[unit]
		if r.Status != model.StatusOverrun {
			continue
		}
		p.Alerts.Dispatch(alert.AlertEvent{
			Timestamp:    p.now().UTC().Format(time.RFC3339),
			RunID:        runID,
			Month:        rec.Month,
			Type:         alert.EventOverrun,
			BusinessUnit: unit,
			Actual:       r.Actual,
			Budget:       r.Budget,
			VariancePct:  r.VariancePct,
			Detail:       fmt.Sprintf("%s over budget by %.1f%%", unit, r.VariancePct),
		})
	}
}

// writeAuditFile persists the run envelope as audit_<run_id>.json.
func writeAuditFile(summary *Summary, outputDir, runID string) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("run: marshal audit file: %w", err)
	}
	path := filepath.Join(outputDir, fmt.Sprintf("audit_%s.json", runID))
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("run: write audit file: %w", err)
	}
	return nil
}

func shortID() string {
	return uuid.NewString()[:8]
}
