// Package reconcile compares aggregated spend against configured budgets
// and classifies each business unit's variance. The top cost drivers
// breakdown is the part finance actually reads: it turns "Engineering is
// 15% over" into "EC2 was up 8k and Data Transfer was up 3k".
package reconcile

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/costline/costline/internal/aggregate"
	"github.com/costline/costline/internal/budget"
	"github.com/costline/costline/internal/model"
)

// maxDrivers caps the top cost drivers list per unit.
const maxDrivers = 5

// Driver is one service's contribution to a unit's spend.
type Driver struct {
	Service string  `json:"service"`
	Amount  float64 `json:"amount"`
}

// Record is the reconciliation outcome for one business unit.
// With no budget configured, only Actual, Status and Message are set.
type Record struct {
	Actual            float64                  `json:"actual"`
	Budget            float64                  `json:"budget,omitempty"`
	Variance          float64                  `json:"variance,omitempty"`
	VariancePct       float64                  `json:"variance_pct,omitempty"`
	Status            model.BudgetStatus       `json:"status"`
	AlertThresholdPct float64                  `json:"alert_threshold_pct,omitempty"`
	TopCostDrivers    []Driver                 `json:"top_cost_drivers,omitempty"`
	Accounts          []aggregate.AccountTotal `json:"accounts,omitempty"`
	Message           string                   `json:"message,omitempty"`
}

// Result is the full reconciliation for one month.
type Result struct {
	Month          string            `json:"month"`
	Units          map[string]Record `json:"units"`
	TotalVariances int               `json:"total_variances"`
	TotalOverrun   float64           `json:"total_overrun"`
	TotalUnderrun  float64           `json:"total_underrun"`

	order []string
}

// Reconcile compares each aggregated business unit against its budget.
// Pure given the aggregate, budget config and month label; the month is
// metadata only and takes no part in the arithmetic. Output is never
// mutated after construction.
func Reconcile(agg *aggregate.Result, budgets *budget.Config, month string, log zerolog.Logger) *Result {
	result := &Result{
		Month: month,
		Units: make(map[string]Record, agg.Len()),
	}

	agg.Each(func(ua *aggregate.UnitAggregate) {
		result.order = append(result.order, ua.Unit)
		actual := ua.Total

		b, hasBudget := budgets.For(ua.Unit)
		if !hasBudget {
			log.Warn().Str("business_unit", ua.Unit).Msg("no budget configured")
			result.Units[ua.Unit] = Record{
				Actual:  round2(actual),
				Status:  model.StatusNoBudget,
				Message: "No budget configured for this business unit",
			}
			return
		}

		variance := actual - b.MonthlyTarget
		variancePct := variance / b.MonthlyTarget * 100

		status := model.StatusOnTrack
		switch {
		case variancePct > b.AlertThresholdPct:
			status = model.StatusOverrun
			result.TotalVariances++
			result.TotalOverrun += variance
		case variancePct < -b.AlertThresholdPct:
			status = model.StatusUnderrun
			result.TotalUnderrun += math.Abs(variance)
		}

		result.Units[ua.Unit] = Record{
			Actual:            round2(actual),
			Budget:            b.MonthlyTarget,
			Variance:          round2(variance),
			VariancePct:       round1(variancePct),
			Status:            status,
			AlertThresholdPct: b.AlertThresholdPct,
			TopCostDrivers:    topDrivers(ua.Services),
			Accounts:          ua.Accounts,
		}

		if status == model.StatusOverrun {
			log.Warn().
				Str("business_unit", ua.Unit).
				Float64("actual", actual).
				Float64("budget", b.MonthlyTarget).
				Float64("variance_pct", round1(variancePct)).
				Msg("budget overrun")
		}
	})

	return result
}

// Order returns the business unit names in aggregate order.
func (r *Result) Order() []string {
	return r.order
}

// topDrivers ranks services by spend descending and keeps the first five.
// The sort is stable so equal amounts keep their first-insertion order.
func topDrivers(services *aggregate.ServiceTotals) []Driver {
	drivers := make([]Driver, 0, services.Len())
	services.Each(func(service string, amount float64) {
		drivers = append(drivers, Driver{Service: service, Amount: amount})
	})

	sort.SliceStable(drivers, func(i, j int) bool {
		return drivers[i].Amount > drivers[j].Amount
	})

	if len(drivers) > maxDrivers {
		drivers = drivers[:maxDrivers]
	}
	for i := range drivers {
		drivers[i].Amount = round2(drivers[i].Amount)
	}
	return drivers
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
