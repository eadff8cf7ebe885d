// Package alert posts budget overruns and validation failures to webhook
// endpoints. Alerts are best-effort and asynchronous: a dead webhook must
// never block or fail an invoice run.
package alert

// AlertConfig defines a webhook alert destination.
type AlertConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["overrun", "validation_fail"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Event types dispatched by the pipeline.
const (
	EventOverrun        = "overrun"
	EventValidationFail = "validation_fail"
)

// AlertEvent is the payload sent to webhook endpoints.
type AlertEvent struct {
	Timestamp    string  `json:"timestamp"`
	RunID        string  `json:"run_id"`
	Month        string  `json:"month"`
	Type         string  `json:"type"`
	BusinessUnit string  `json:"business_unit,omitempty"`
	Stage        string  `json:"stage,omitempty"`
	Actual       float64 `json:"actual,omitempty"`
	Budget       float64 `json:"budget,omitempty"`
	VariancePct  float64 `json:"variance_pct,omitempty"`
	Detail       string  `json:"detail"`
}
