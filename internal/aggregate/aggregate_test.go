package aggregate

import (
	"math"
	"testing"

	"github.com/costline/costline/internal/model"
)

func rec(date, service string, amount float64) model.CostRecord {
	return model.CostRecord{
		Date:      date,
		Service:   service,
		Amount:    amount,
		Currency:  "USD",
		AccountID: "111111111111",
	}
}

func TestByBusinessUnitTotalsMatch(t *testing.T) {
	payers := []model.PayerCosts{
		{
			AccountID:    "111111111111",
			Name:         "Core Platform",
			BusinessUnit: "Engineering",
			Records: []model.CostRecord{
				rec("2025-11-01", "Amazon EC2", 5000),
				rec("2025-11-01", "Amazon S3", 2000),
			},
		},
		{
			AccountID:    "222222222222",
			Name:         "Data Platform",
			BusinessUnit: "Engineering",
			Records: []model.CostRecord{
				rec("2025-11-01", "Amazon EC2", 3000),
			},
		},
	}

	result := ByBusinessUnit(payers)

	if result.Len() != 1 {
		t.Fatalf("expected 1 business unit, got %d", result.Len())
	}
	eng := result.Get("Engineering")
	if eng == nil {
		t.Fatal("Engineering aggregate missing")
	}
	if eng.Total != 10000 {
		t.Fatalf("expected total 10000, got %v", eng.Total)
	}

	var accountSum float64
	for _, a := range eng.Accounts {
		accountSum += a.Total
	}
	if math.Abs(accountSum-eng.Total) > 0.01 {
		t.Fatalf("account sum %v != total %v", accountSum, eng.Total)
	}
	if math.Abs(eng.Services.Sum()-eng.Total) > 0.01 {
		t.Fatalf("service sum %v != total %v", eng.Services.Sum(), eng.Total)
	}
	if got := eng.Services.Get("Amazon EC2"); got != 8000 {
		t.Fatalf("expected EC2 subtotal 8000, got %v", got)
	}
}

func TestByBusinessUnitZeroRecordAccount(t *testing.T) {
	payers := []model.PayerCosts{
		{AccountID: "111111111111", Name: "Empty", BusinessUnit: "Sandbox"},
	}

	result := ByBusinessUnit(payers)

	agg := result.Get("Sandbox")
	if agg == nil {
		t.Fatal("Sandbox aggregate missing")
	}
	if agg.Total != 0 {
		t.Fatalf("expected zero total, got %v", agg.Total)
	}
	if agg.Services.Len() != 0 {
		t.Fatalf("expected empty services, got %d", agg.Services.Len())
	}
	if len(agg.Accounts) != 1 || agg.Accounts[0].Total != 0 {
		t.Fatalf("expected one zero-total account entry, got %+v", agg.Accounts)
	}
}

func TestByBusinessUnitUnmappedLandsInUnassigned(t *testing.T) {
	payers := []model.PayerCosts{
		{
			AccountID: "999999999999",
			Name:      "Mystery",
			Records:   []model.CostRecord{rec("2025-11-02", "Amazon EC2", 42)},
		},
	}

	result := ByBusinessUnit(payers)

	if result.Get(model.UnassignedUnit) == nil {
		t.Fatal("expected Unassigned bucket for unmapped payer")
	}
}

func TestByBusinessUnitPreservesOrder(t *testing.T) {
	payers := []model.PayerCosts{
		{AccountID: "1", Name: "a", BusinessUnit: "Zeta", Records: []model.CostRecord{rec("2025-11-01", "S1", 1)}},
		{AccountID: "2", Name: "b", BusinessUnit: "Alpha", Records: []model.CostRecord{rec("2025-11-01", "S2", 1)}},
		{AccountID: "3", Name: "c", BusinessUnit: "Zeta", Records: []model.CostRecord{rec("2025-11-01", "S3", 1)}},
	}

	result := ByBusinessUnit(payers)

	units := result.Units()
	if len(units) != 2 || units[0] != "Zeta" || units[1] != "Alpha" {
		t.Fatalf("expected first-seen order [Zeta Alpha], got %v", units)
	}

	zeta := result.Get("Zeta")
	if len(zeta.Accounts) != 2 || zeta.Accounts[0].ID != "1" || zeta.Accounts[1].ID != "3" {
		t.Fatalf("expected accounts in processing order, got %+v", zeta.Accounts)
	}
}

func TestByBusinessUnitDoesNotMutateInput(t *testing.T) {
	records := []model.CostRecord{rec("2025-11-01", "Amazon EC2", 10)}
	payers := []model.PayerCosts{
		{AccountID: "1", Name: "a", BusinessUnit: "Eng", Records: records},
	}

	ByBusinessUnit(payers)

	if records[0].Amount != 10 || records[0].Service != "Amazon EC2" {
		t.Fatalf("input mutated: %+v", records[0])
	}
}

func TestServiceTotalsOrderAndDefaults(t *testing.T) {
	st := NewServiceTotals()
	st.Add("b", 1)
	st.Add("a", 2)
	st.Add("b", 3)

	if got := st.Get("b"); got != 4 {
		t.Fatalf("expected 4, got %v", got)
	}
	if got := st.Get("missing"); got != 0 {
		t.Fatalf("expected zero for unseen service, got %v", got)
	}
	services := st.Services()
	if len(services) != 2 || services[0] != "b" || services[1] != "a" {
		t.Fatalf("expected insertion order [b a], got %v", services)
	}
	if st.Sum() != 6 {
		t.Fatalf("expected sum 6, got %v", st.Sum())
	}
}

func TestTotalSpendAcrossUnits(t *testing.T) {
	payers := []model.PayerCosts{
		{AccountID: "1", Name: "a", BusinessUnit: "Eng", Records: []model.CostRecord{rec("2025-11-01", "S", 100)}},
		{AccountID: "2", Name: "b", BusinessUnit: "Ops", Records: []model.CostRecord{rec("2025-11-01", "S", 50)}},
	}

	result := ByBusinessUnit(payers)

	if got := result.TotalSpend(); got != 150 {
		t.Fatalf("expected total spend 150, got %v", got)
	}
}
