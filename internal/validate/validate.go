// Package validate runs structural and arithmetic consistency checks at
// each pipeline stage. Checks are advisory: the pipeline records verdicts
// and keeps going, because a finance report is still worth producing when
// one stray record is off — as long as the discrepancy is visible in the
// audit trail.
package validate

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/costline/costline/internal/aggregate"
	"github.com/costline/costline/internal/model"
	"github.com/costline/costline/internal/reconcile"
)

// Arithmetic tolerances. Totals are compared to 0.01 (a penny of rounding
// slack); recomputed variance percentages to 0.1.
const (
	totalTolerance = 0.01
	pctTolerance   = 0.1
)

// warnLimit is the issue count at which a cost-data verdict degrades from
// WARN to FAIL.
const warnLimit = 3

// Result is the outcome of a single validation check.
type Result struct {
	Status        model.CheckStatus `json:"status"`
	Issues        []string          `json:"issues"`
	IssueCount    int               `json:"issue_count"`
	ValidatedAt   string            `json:"validated_at"`
	RecordCount   int               `json:"record_count,omitempty"`
	TotalAmount   float64           `json:"total_amount,omitempty"`
	Checksum      string            `json:"checksum,omitempty"`
	BusinessUnits int               `json:"business_units,omitempty"`
}

// CheckEntry is one line in the run-scoped validation log.
type CheckEntry struct {
	Stage      string            `json:"stage"`
	Context    string            `json:"context"`
	Status     model.CheckStatus `json:"status"`
	IssueCount int               `json:"issue_count"`
	Timestamp  string            `json:"timestamp"`
}

// Summary totals the checks performed during one run.
type Summary struct {
	TotalChecks int          `json:"total_checks"`
	Passed      int          `json:"passed"`
	Warnings    int          `json:"warnings"`
	Failed      int          `json:"failed"`
	Checks      []CheckEntry `json:"checks"`
}

// Validator runs stage checks and keeps a run-scoped log of verdicts.
// Not safe for concurrent use; one Validator per run.
type Validator struct {
	log     zerolog.Logger
	checks  []CheckEntry
	nowFunc func() time.Time
}

// New returns a Validator logging verdicts through log.
func New(log zerolog.Logger) *Validator {
	return &Validator{log: log, nowFunc: time.Now}
}

// CostData validates one payer's raw record list for completeness and
// consistency. An empty list is an immediate FAIL; otherwise issues
// accumulate per record and the verdict degrades PASS → WARN (1–2 issues)
// → FAIL (3+). Exact duplicate (date, service, amount) triples are
// reported but do not abort processing.
func (v *Validator) CostData(records []model.CostRecord, payerID string) Result {
	var issues []string

	if len(records) == 0 {
		issues = append(issues, fmt.Sprintf("no cost data returned for payer %s", payerID))
		result := v.result(model.CheckFail, issues)
		v.logCheck("cost_data", payerID, result)
		return result
	}

	for i, r := range records {
		switch {
		case math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0):
			issues = append(issues, fmt.Sprintf("record %d: amount is not numeric", i))
		case r.Amount < 0:
			issues = append(issues, fmt.Sprintf("record %d: negative amount (%v)", i, r.Amount))
		}

		if r.Date == "" {
			issues = append(issues, fmt.Sprintf("record %d: missing date field", i))
		} else if _, err := time.Parse("2006-01-02", r.Date); err != nil {
			issues = append(issues, fmt.Sprintf("record %d: invalid date format (%s)", i, r.Date))
		}

		if r.Service == "" {
			issues = append(issues, fmt.Sprintf("record %d: missing service field", i))
		}
	}

	seen := make(map[string]bool, len(records))
	for _, r := range records {
		key := fmt.Sprintf("%s|%s|%v", r.Date, r.Service, r.Amount)
		if seen[key] {
			issues = append(issues, fmt.Sprintf("potential duplicate: %s", key))
		}
		seen[key] = true
	}

	status := model.CheckPass
	switch {
	case len(issues) >= warnLimit:
		status = model.CheckFail
	case len(issues) > 0:
		status = model.CheckWarn
	}

	result := v.result(status, issues)
	result.RecordCount = len(records)
	for _, r := range records {
		result.TotalAmount += r.Amount
	}
	result.Checksum = Checksum(records)

	v.logCheck("cost_data", payerID, result)
	return result
}

// Aggregation cross-checks each business unit rollup: the stated total
// must match both the sum of account totals and the sum of service
// subtotals to within tolerance, and must be positive. Any issue is a
// FAIL — aggregation arithmetic has no warning tier.
func (v *Validator) Aggregation(agg *aggregate.Result) Result {
	var issues []string

	agg.Each(func(ua *aggregate.UnitAggregate) {
		if ua.Total <= 0 {
			issues = append(issues, fmt.Sprintf("%s: zero or negative total", ua.Unit))
		}

		var accountSum float64
		for _, a := range ua.Accounts {
			accountSum += a.Total
		}
		if math.Abs(accountSum-ua.Total) > totalTolerance {
			issues = append(issues, fmt.Sprintf("%s: account sum (%.2f) != total (%.2f)",
				ua.Unit, accountSum, ua.Total))
		}

		if serviceSum := ua.Services.Sum(); math.Abs(serviceSum-ua.Total) > totalTolerance {
			issues = append(issues, fmt.Sprintf("%s: service sum (%.2f) != total (%.2f)",
				ua.Unit, serviceSum, ua.Total))
		}
	})

	status := model.CheckPass
	if len(issues) > 0 {
		status = model.CheckFail
	}

	result := v.result(status, issues)
	result.BusinessUnits = agg.Len()

	v.logCheck("aggregation", "all", result)
	return result
}

// Reconciliation recomputes variance and variance percentage for every
// budgeted unit and compares against the stored values. A mismatch means
// the reconciler's arithmetic drifted and is always a FAIL.
func (v *Validator) Reconciliation(rec *reconcile.Result) Result {
	var issues []string

	for _, unit := range rec.Order() {
		r := rec.Units[unit]
		if r.Budget == 0 || r.Status == model.StatusNoBudget {
			continue
		}

		expectedVariance := r.Actual - r.Budget
		if math.Abs(expectedVariance-r.Variance) > totalTolerance {
			issues = append(issues, fmt.Sprintf("%s: variance calculation mismatch", unit))
		}

		expectedPct := expectedVariance / r.Budget * 100
		if math.Abs(expectedPct-r.VariancePct) > pctTolerance {
			issues = append(issues, fmt.Sprintf("%s: variance percentage mismatch", unit))
		}
	}

	status := model.CheckPass
	if len(issues) > 0 {
		status = model.CheckFail
	}

	result := v.result(status, issues)
	v.logCheck("reconciliation", "all", result)
	return result
}

// Summary returns the totals for all checks performed so far this run.
func (v *Validator) Summary() Summary {
	s := Summary{
		TotalChecks: len(v.checks),
		Checks:      v.checks,
	}
	for _, c := range v.checks {
		switch c.Status {
		case model.CheckPass:
			s.Passed++
		case model.CheckWarn:
			s.Warnings++
		case model.CheckFail:
			s.Failed++
		}
	}
	return s
}

func (v *Validator) result(status model.CheckStatus, issues []string) Result {
	return Result{
		Status:      status,
		Issues:      issues,
		IssueCount:  len(issues),
		ValidatedAt: v.nowFunc().UTC().Format(time.RFC3339),
	}
}

// logCheck appends the verdict to the run log and emits it at the
// severity matching the status: FAIL at error, WARN at warn, PASS at info.
func (v *Validator) logCheck(stage, context string, result Result) {
	v.checks = append(v.checks, CheckEntry{
		Stage:      stage,
		Context:    context,
		Status:     result.Status,
		IssueCount: result.IssueCount,
		Timestamp:  result.ValidatedAt,
	})

	switch result.Status {
	case model.CheckFail:
		v.log.Error().Str("stage", stage).Str("context", context).
			Strs("issues", result.Issues).Msg("validation failed")
	case model.CheckWarn:
		v.log.Warn().Str("stage", stage).Str("context", context).
			Strs("issues", result.Issues).Msg("validation warnings")
	default:
		v.log.Info().Str("stage", stage).Str("context", context).Msg("validation passed")
	}
}
