// Package mapping resolves payer account IDs to organisational metadata.
// The mapping lives in a version-controlled YAML file rather than provider
// tags, because in practice account metadata is never where the provider
// says it is. Loaded once per run, read-only afterwards.
package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/costline/costline/internal/model"
)

// File is the on-disk shape of accounts.yaml.
type File struct {
	PayerAccounts []model.AccountMetadata `yaml:"payer_accounts"`
}

// Mapper answers account-to-business-unit lookups with a guaranteed
// non-failing default for unknown accounts.
type Mapper struct {
	accounts []model.AccountMetadata
	index    map[string]model.AccountMetadata
}

// Load reads accounts.yaml from path. A missing file degrades to an empty
// mapping (every account resolves to Unassigned); the caller decides
// whether that is worth warning about. Unparseable YAML is an error.
func Load(path string) (*Mapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("mapping: read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("mapping: parse %s: %w", path, err)
	}
	return New(f.PayerAccounts), nil
}

// New builds a Mapper from already-loaded account metadata.
// Input order is preserved: Payers() returns accounts in file order so
// processing is deterministic run to run.
func New(accounts []model.AccountMetadata) *Mapper {
	index := make(map[string]model.AccountMetadata, len(accounts))
	for _, a := range accounts {
		index[a.AccountID] = a
	}
	return &Mapper{accounts: accounts, index: index}
}

// Payers returns the configured payer accounts in file order.
func (m *Mapper) Payers() []model.AccountMetadata {
	return m.accounts
}

// Metadata returns the full metadata for an account ID. Unknown accounts
// get the Unassigned default rather than an error.
func (m *Mapper) Metadata(accountID string) model.AccountMetadata {
	if meta, ok := m.index[accountID]; ok {
		return withDefaults(meta)
	}
	return model.AccountMetadata{
		AccountID:    accountID,
		Name:         "Unknown",
		BusinessUnit: model.UnassignedUnit,
	}
}

// BusinessUnit returns the business unit for an account ID, defaulting to
// Unassigned for unmapped accounts.
func (m *Mapper) BusinessUnit(accountID string) string {
	return m.Metadata(accountID).BusinessUnit
}

// Unmapped returns the subset of accountIDs with no mapping configured.
// Useful as a pre-flight check before onboarding a new payer.
func (m *Mapper) Unmapped(accountIDs []string) []string {
	var missing []string
	for _, id := range accountIDs {
		if _, ok := m.index[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// ValidationReport summarises mapping completeness.
type ValidationReport struct {
	Valid         bool     `json:"valid"`
	TotalAccounts int      `json:"total_accounts"`
	Issues        []string `json:"issues"`
}

// Validate checks every configured account for the fields finance reports
// depend on. Run this before a new payer shows up as Unassigned in a report.
func (m *Mapper) Validate() ValidationReport {
	var issues []string
	for _, a := range m.accounts {
		if a.BusinessUnit == "" {
			issues = append(issues, fmt.Sprintf("account %s: missing business_unit", a.AccountID))
		}
		if a.CostCentre == "" {
			issues = append(issues, fmt.Sprintf("account %s: missing cost_centre", a.AccountID))
		}
	}
	return ValidationReport{
		Valid:         len(issues) == 0,
		TotalAccounts: len(m.accounts),
		Issues:        issues,
	}
}

func withDefaults(meta model.AccountMetadata) model.AccountMetadata {
	if meta.Name == "" {
		meta.Name = "Unknown"
	}
	if meta.BusinessUnit == "" {
		meta.BusinessUnit = model.UnassignedUnit
	}
	return meta
}
