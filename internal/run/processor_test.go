package run

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/costline/costline/internal/alert"
	"github.com/costline/costline/internal/audit"
	"github.com/costline/costline/internal/budget"
	"github.com/costline/costline/internal/mapping"
	"github.com/costline/costline/internal/model"
)

// fakeSource returns canned records per payer account.
type fakeSource struct {
	records map[string][]model.CostRecord
	errs    map[string]error
	calls   []string
}

func (f *fakeSource) MonthlyCosts(_ context.Context, payerAccountID, _ string) ([]model.CostRecord, error) {
	f.calls = append(f.calls, payerAccountID)
	if err, ok := f.errs[payerAccountID]; ok {
		return nil, err
	}
	return f.records[payerAccountID], nil
}

func testMapper() *mapping.Mapper {
	return mapping.New([]model.AccountMetadata{
		{AccountID: "111111111111", Name: "Core Platform", BusinessUnit: "Engineering", CostCentre: "CC-100"},
		{AccountID: "222222222222", Name: "Analytics", BusinessUnit: "Data", CostCentre: "CC-200"},
	})
}

func recordsFor(accountID string, amount float64) []model.CostRecord {
	return []model.CostRecord{
		{Date: "2025-11-01", AccountID: accountID, Service: "Amazon EC2", Amount: amount, Currency: "USD"},
	}
}

func testProcessor(source CostSource, budgets *budget.Config) *Processor {
	if budgets == nil {
		budgets = &budget.Config{}
	}
	return New(source, testMapper(), budgets, zerolog.Nop())
}

func TestProcessFullRun(t *testing.T) {
	source := &fakeSource{records: map[string][]model.CostRecord{
		"111111111111": recordsFor("111111111111", 7000),
		"222222222222": recordsFor("222222222222", 3000),
	}}
	budgets := &budget.Config{Budgets: map[string]budget.UnitBudget{
		"Engineering": {MonthlyTarget: 8000, AlertThresholdPct: 10},
	}}

	outDir := t.TempDir()
	summary, err := testProcessor(source, budgets).Process(context.Background(), Options{
		Month:     "2025-11",
		Reconcile: true,
		Format:    "json",
		OutputDir: outDir,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if summary.Month != "2025-11" {
		t.Fatalf("expected month 2025-11, got %s", summary.Month)
	}
	if summary.PayerAccountsProcessed != 2 {
		t.Fatalf("expected 2 payers, got %d", summary.PayerAccountsProcessed)
	}
	if summary.BusinessUnits != 2 {
		t.Fatalf("expected 2 business units, got %d", summary.BusinessUnits)
	}
	if summary.TotalSpend != 10000 {
		t.Fatalf("expected total spend 10000, got %v", summary.TotalSpend)
	}
	if summary.Reconciliation == nil {
		t.Fatal("expected reconciliation result")
	}
	if !strings.HasPrefix(summary.DataChecksum, "sha256:") {
		t.Fatalf("expected sha256 checksum, got %q", summary.DataChecksum)
	}
	if summary.RunID == "" {
		t.Fatal("expected a run ID")
	}

	if _, err := os.Stat(summary.ReportFile); err != nil {
		t.Fatalf("report file not written: %v", err)
	}

	// Validation: 2 payer cost-data checks + aggregation + reconciliation.
	if summary.Validation.TotalChecks != 4 {
		t.Fatalf("expected 4 validation checks, got %d", summary.Validation.TotalChecks)
	}
	if summary.Validation.Failed != 0 {
		t.Fatalf("expected no failures, got %+v", summary.Validation)
	}
}

func TestProcessAuditTrailSequence(t *testing.T) {
	source := &fakeSource{records: map[string][]model.CostRecord{
		"111111111111": recordsFor("111111111111", 100),
		"222222222222": recordsFor("222222222222", 200),
	}}

	summary, err := testProcessor(source, nil).Process(context.Background(), Options{
		Month: "2025-11", Reconcile: true, Format: "json", OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	want := []string{"STARTED", "EXTRACTED", "MAPPED", "RECONCILED", "COMPLETED"}
	if len(summary.AuditTrail) != len(want) {
		t.Fatalf("expected %d trail entries, got %d", len(want), len(summary.AuditTrail))
	}
	for i, event := range want {
		if summary.AuditTrail[i].Event != event {
			t.Fatalf("trail[%d]: expected %s, got %s", i, event, summary.AuditTrail[i].Event)
		}
	}
}

func TestProcessSkipsReconcileWhenNotRequested(t *testing.T) {
	source := &fakeSource{records: map[string][]model.CostRecord{
		"111111111111": recordsFor("111111111111", 100),
		"222222222222": recordsFor("222222222222", 200),
	}}

	summary, err := testProcessor(source, nil).Process(context.Background(), Options{
		Month: "2025-11", Format: "json", OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if summary.Reconciliation != nil {
		t.Fatal("expected no reconciliation result")
	}
	for _, e := range summary.AuditTrail {
		if e.Event == "RECONCILED" {
			t.Fatal("RECONCILED must not appear when reconciliation is off")
		}
	}
}

func TestProcessWritesAuditFile(t *testing.T) {
	source := &fakeSource{records: map[string][]model.CostRecord{
		"111111111111": recordsFor("111111111111", 100),
		"222222222222": recordsFor("222222222222", 200),
	}}

	outDir := t.TempDir()
	summary, err := testProcessor(source, nil).Process(context.Background(), Options{
		Month: "2025-11", Format: "json", OutputDir: outDir,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	path := filepath.Join(outDir, "audit_"+summary.RunID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("audit file not written: %v", err)
	}

	var persisted Summary
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("audit file is not valid JSON: %v", err)
	}
	if persisted.RunID != summary.RunID || persisted.DataChecksum != summary.DataChecksum {
		t.Fatalf("audit file does not match the run: %+v", persisted)
	}
}

func TestProcessExtractionErrorDegrades(t *testing.T) {
	source := &fakeSource{
		records: map[string][]model.CostRecord{
			"222222222222": recordsFor("222222222222", 200),
		},
		errs: map[string]error{"111111111111": errors.New("AccessDenied")},
	}

	summary, err := testProcessor(source, nil).Process(context.Background(), Options{
		Month: "2025-11", Format: "json", OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("extraction failure must not abort the run: %v", err)
	}

	if summary.PayerAccountsProcessed != 2 {
		t.Fatalf("expected both payers processed, got %d", summary.PayerAccountsProcessed)
	}
	// The failed payer surfaces as an empty-data FAIL.
	if summary.Validation.Failed != 1 {
		t.Fatalf("expected 1 failed check, got %+v", summary.Validation)
	}
	if summary.TotalSpend != 200 {
		t.Fatalf("expected only the healthy payer's spend, got %v", summary.TotalSpend)
	}
}

func TestProcessMirrorsIntoChainedLog(t *testing.T) {
	source := &fakeSource{records: map[string][]model.CostRecord{
		"111111111111": recordsFor("111111111111", 100),
		"222222222222": recordsFor("222222222222", 200),
	}}

	outDir := t.TempDir()
	chainPath := filepath.Join(outDir, "audit.jsonl")
	chain, err := audit.Open(chainPath)
	if err != nil {
		t.Fatalf("open chain log: %v", err)
	}

	p := testProcessor(source, nil)
	p.ChainLog = chain

	summary, err := p.Process(context.Background(), Options{
		Month: "2025-11", Format: "json", OutputDir: outDir,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	chain.Close()

	result := audit.Verify(chainPath)
	if !result.Valid {
		t.Fatalf("chained log invalid: %s", result.Error)
	}
	if result.Lines != len(summary.AuditTrail) {
		t.Fatalf("expected %d chained entries, got %d", len(summary.AuditTrail), result.Lines)
	}
}

func TestProcessDispatchesOverrunAlert(t *testing.T) {
	var called atomic.Int32
	var gotBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event alert.AlertEvent
		json.NewDecoder(r.Body).Decode(&event)
		gotBody.Store(event)
		called.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	source := &fakeSource{records: map[string][]model.CostRecord{
		"111111111111": recordsFor("111111111111", 10000),
		"222222222222": recordsFor("222222222222", 200),
	}}
	budgets := &budget.Config{Budgets: map[string]budget.UnitBudget{
		"Engineering": {MonthlyTarget: 8000, AlertThresholdPct: 10},
	}}

	p := testProcessor(source, budgets)
	p.Alerts = alert.NewDispatcher([]alert.AlertConfig{
		{URL: srv.URL, Format: "generic", Events: []string{alert.EventOverrun}},
	})

	if _, err := p.Process(context.Background(), Options{
		Month: "2025-11", Reconcile: true, Format: "json", OutputDir: t.TempDir(),
	}); err != nil {
		t.Fatalf("process: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if called.Load() != 1 {
		t.Fatalf("expected 1 overrun alert, got %d", called.Load())
	}
	event, _ := gotBody.Load().(alert.AlertEvent)
	if event.Type != alert.EventOverrun || event.BusinessUnit != "Engineering" {
		t.Fatalf("unexpected alert event: %+v", event)
	}
	if event.Actual != 10000 || event.Budget != 8000 {
		t.Fatalf("unexpected alert figures: %+v", event)
	}
}

func TestProcessDispatchesValidationFailAlert(t *testing.T) {
	var called atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	source := &fakeSource{errs: map[string]error{
		"111111111111": errors.New("AccessDenied"),
		"222222222222": errors.New("AccessDenied"),
	}}

	p := testProcessor(source, nil)
	p.Alerts = alert.NewDispatcher([]alert.AlertConfig{
		{URL: srv.URL, Format: "generic", Events: []string{alert.EventValidationFail}},
	})

	if _, err := p.Process(context.Background(), Options{
		Month: "2025-11", Format: "json", OutputDir: t.TempDir(),
	}); err != nil {
		t.Fatalf("process: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	// Two empty payers fail cost-data checks; the zero-total aggregation
	// check fails too.
	if called.Load() != 3 {
		t.Fatalf("expected 3 validation alerts, got %d", called.Load())
	}
}

func TestProcessDefaultsToCurrentMonth(t *testing.T) {
	source := &fakeSource{records: map[string][]model.CostRecord{
		"111111111111": recordsFor("111111111111", 100),
		"222222222222": recordsFor("222222222222", 200),
	}}

	p := testProcessor(source, nil)
	p.now = func() time.Time { return time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC) }

	summary, err := p.Process(context.Background(), Options{
		Format: "json", OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if summary.Month != "2025-11" {
		t.Fatalf("expected current month default, got %s", summary.Month)
	}
	if !strings.HasPrefix(summary.RunID, "20251120_120000_") {
		t.Fatalf("unexpected run ID: %s", summary.RunID)
	}
}
