package alert

import (
	"encoding/json"
	"fmt"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event AlertEvent) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event AlertEvent) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event AlertEvent) ([]byte, error) {
	fields := []any{
		map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Month:* %s", event.Month)},
		map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Detail:* %s", event.Detail)},
	}
	if event.Type == EventOverrun {
		fields = append(fields,
			map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Unit:* %s", event.BusinessUnit)},
			map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Actual:* %.2f vs budget %.2f (%+.1f%%)",
				event.Actual, event.Budget, event.VariancePct)},
		)
	}

	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("costline: %s", event.Type),
				},
			},
			map[string]any{
				"type":   "section",
				"fields": fields,
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event AlertEvent) ([]byte, error) {
	severity := "warning"
	if event.Type == EventValidationFail {
		severity = "error"
	}

	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  fmt.Sprintf("costline %s: %s", event.Type, event.Detail),
			"severity": severity,
			"source":   "costline",
			"custom_details": map[string]any{
				"run_id":        event.RunID,
				"month":         event.Month,
				"business_unit": event.BusinessUnit,
				"actual":        event.Actual,
				"budget":        event.Budget,
				"variance_pct":  event.VariancePct,
			},
		},
	}
	return json.Marshal(payload)
}
