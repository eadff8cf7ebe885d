// Package model defines the shared types that flow through the invoice
// pipeline: normalized cost records, account metadata, and the status
// vocabularies used by reconciliation and validation.
package model

// UnassignedUnit is the sentinel business unit for accounts with no
// configured mapping. Landing here is a reporting outcome, not an error.
const UnassignedUnit = "Unassigned"

// CostRecord is one normalized line of spend: a single service on a single
// day for a single payer account. Records are immutable once produced by
// the extractor; dust amounts never make it this far.
type CostRecord struct {
	Date          string  `json:"date"`
	AccountID     string  `json:"payer_account"`
	Service       string  `json:"service"`
	Amount        float64 `json:"amount"`
	BlendedAmount float64 `json:"blended_amount,omitempty"`
	Currency      string  `json:"currency"`
}

// PayerCosts bundles one payer account's extraction output with the
// organisational attribution it was resolved to. This is the handoff
// artifact between extraction and aggregation.
type PayerCosts struct {
	AccountID    string       `json:"account_id"`
	Name         string       `json:"name"`
	BusinessUnit string       `json:"business_unit"`
	Records      []CostRecord `json:"costs"`
}

// AccountMetadata is the organisational attribution for a payer account,
// loaded once per run from the accounts mapping file.
type AccountMetadata struct {
	AccountID    string `json:"account_id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	BusinessUnit string `json:"business_unit" yaml:"business_unit"`
	CostCentre   string `json:"cost_centre" yaml:"cost_centre"`
	Owner        string `json:"owner" yaml:"owner"`
	Environment  string `json:"environment" yaml:"environment"`
}

// BudgetStatus classifies a business unit's spend against its budget.
type BudgetStatus string

const (
	StatusOnTrack  BudgetStatus = "ON_TRACK"
	StatusOverrun  BudgetStatus = "OVERRUN"
	StatusUnderrun BudgetStatus = "UNDERRUN"
	StatusNoBudget BudgetStatus = "NO_BUDGET"
)

// CheckStatus is the verdict of a validation check.
type CheckStatus string

const (
	CheckPass CheckStatus = "PASS"
	CheckWarn CheckStatus = "WARN"
	CheckFail CheckStatus = "FAIL"
)
