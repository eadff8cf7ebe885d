// Package budget loads per-business-unit budget targets from budgets.yaml.
// Absence of a budget is an expected state (NO_BUDGET downstream), so a
// missing file degrades to an empty configuration instead of failing.
package budget

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/costline/costline/internal/alert"
)

// DefaultAlertThresholdPct is the variance threshold applied when a unit's
// budget does not set one. Not every team needs the same sensitivity, which
// is why it is overridable per unit.
const DefaultAlertThresholdPct = 10.0

// UnitBudget is one business unit's monthly target and alert sensitivity.
// A zero MonthlyTarget means no budget is configured.
type UnitBudget struct {
	MonthlyTarget     float64 `yaml:"monthly_target"`
	AlertThresholdPct float64 `yaml:"alert_threshold_pct"`
}

// Config holds all budget targets plus webhook alert destinations,
// loaded once per run and read-only afterwards.
type Config struct {
	Budgets map[string]UnitBudget `yaml:"budgets"`
	Alerts  []alert.AlertConfig   `yaml:"alerts"`
}

// Load reads budgets.yaml from path. Missing file returns an empty config
// (every unit reconciles as NO_BUDGET). Invalid YAML is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Budgets: map[string]UnitBudget{}}, nil
		}
		return nil, fmt.Errorf("budget: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("budget: parse %s: %w", path, err)
	}
	if cfg.Budgets == nil {
		cfg.Budgets = map[string]UnitBudget{}
	}
	return cfg, nil
}

// For returns the budget for a business unit with the threshold default
// applied. The second return reports whether a target is actually set.
func (c *Config) For(unit string) (UnitBudget, bool) {
	b, ok := c.Budgets[unit]
	if b.AlertThresholdPct == 0 {
		b.AlertThresholdPct = DefaultAlertThresholdPct
	}
	return b, ok && b.MonthlyTarget != 0
}
