// Package aggregate folds per-payer cost records into business unit
// rollups: one total per unit, per-account contributions, and per-service
// subtotals. Build-once, read-only after construction.
package aggregate

import (
	"github.com/costline/costline/internal/model"
)

// AccountTotal is one payer account's contribution to a business unit.
type AccountTotal struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

// UnitAggregate is the rollup for a single business unit.
// Invariant: Total equals the sum of account totals, which equals the sum
// of service subtotals (to within rounding tolerance).
type UnitAggregate struct {
	Unit     string         `json:"business_unit"`
	Total    float64        `json:"total"`
	Accounts []AccountTotal `json:"accounts"`
	Services *ServiceTotals `json:"-"`
}

// Result maps business units to their aggregates, preserving first-seen
// unit order for deterministic reports.
type Result struct {
	order []string
	units map[string]*UnitAggregate
}

// ByBusinessUnit aggregates payer cost bundles into business unit rollups.
// Payers are processed in slice order; an account with no records still
// lands in its unit with a zero total and empty services. Unmapped payers
// (empty BusinessUnit) fall into the Unassigned bucket. The input is not
// mutated.
func ByBusinessUnit(payers []model.PayerCosts) *Result {
	r := &Result{units: make(map[string]*UnitAggregate)}

	for _, payer := range payers {
		unit := payer.BusinessUnit
		if unit == "" {
			unit = model.UnassignedUnit
		}

		agg, ok := r.units[unit]
		if !ok {
			agg = &UnitAggregate{Unit: unit, Services: NewServiceTotals()}
			r.units[unit] = agg
			r.order = append(r.order, unit)
		}

		var accountTotal float64
		for _, rec := range payer.Records {
			accountTotal += rec.Amount
			service := rec.Service
			if service == "" {
				service = "Other"
			}
			agg.Services.Add(service, rec.Amount)
		}

		agg.Total += accountTotal
		agg.Accounts = append(agg.Accounts, AccountTotal{
			ID:    payer.AccountID,
			Name:  payer.Name,
			Total: accountTotal,
		})
	}

	return r
}

// Units returns the business unit names in first-seen order.
func (r *Result) Units() []string {
	return r.order
}

// Get returns the aggregate for a business unit, or nil if absent.
func (r *Result) Get(unit string) *UnitAggregate {
	return r.units[unit]
}

// Len returns the number of business units.
func (r *Result) Len() int {
	return len(r.order)
}

// TotalSpend sums the totals across all business units.
func (r *Result) TotalSpend() float64 {
	var sum float64
	for _, agg := range r.units {
		sum += agg.Total
	}
	return sum
}

// Each calls fn for every unit aggregate in first-seen order.
func (r *Result) Each(fn func(agg *UnitAggregate)) {
	for _, unit := range r.order {
		fn(r.units[unit])
	}
}
