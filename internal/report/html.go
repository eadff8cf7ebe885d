package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/costline/costline/internal/aggregate"
	"github.com/costline/costline/internal/model"
)

var htmlTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Cloud Invoice Report — {{.Month}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; color: #333; }
        h1 { color: #232f3e; border-bottom: 3px solid #ff9900; padding-bottom: 10px; }
        h2 { color: #232f3e; margin-top: 30px; }
        table { border-collapse: collapse; width: 100%; margin: 20px 0; }
        th { background: #232f3e; color: white; padding: 12px; text-align: left; }
        td { border: 1px solid #ddd; padding: 10px; }
        tr:nth-child(even) { background: #f9f9f9; }
        .overrun { color: #d13212; font-weight: bold; }
        .on-track { color: #1d8102; }
        .summary-box { background: #f0f0f0; padding: 20px; border-radius: 8px;
                       margin: 20px 0; display: inline-block; }
        .metadata { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <h1>Cloud Invoice Report — {{.Month}}</h1>
    <p class="metadata">Generated: {{.GeneratedAt}}</p>

    <div class="summary-box">
        <strong>Total Spend: {{printf "%.2f" .TotalSpend}}</strong><br>
        Payer Accounts: {{.PayerCount}}<br>
        Business Units: {{.UnitCount}}
    </div>

    <h2>Spend by Business Unit</h2>
    <table>
        <tr><th>Business Unit</th><th>Total Spend</th><th>Accounts</th><th>Top Service</th></tr>
{{- range .Units}}
        <tr>
            <td>{{.Name}}</td>
            <td>{{printf "%.2f" .Total}}</td>
            <td>{{.AccountCount}}</td>
            <td>{{.TopService}} ({{printf "%.2f" .TopAmount}})</td>
        </tr>
{{- end}}
    </table>
{{- if .Reconciliation}}

    <h2>Budget Reconciliation</h2>
    <table>
        <tr><th>Business Unit</th><th>Actual</th><th>Budget</th><th>Variance</th><th>Status</th></tr>
{{- range .Reconciliation}}
        <tr>
            <td>{{.Name}}</td>
            <td>{{printf "%.2f" .Actual}}</td>
            <td>{{.BudgetText}}</td>
            <td class="{{.StatusClass}}">{{.VarianceText}}</td>
            <td class="{{.StatusClass}}">{{.Status}}</td>
        </tr>
{{- end}}
    </table>
{{- end}}
</body>
</html>
`))

type htmlUnit struct {
	Name         string
	Total        float64
	AccountCount int
	TopService   string
	TopAmount    float64
}

type htmlReconRow struct {
	Name         string
	Actual       float64
	BudgetText   string
	VarianceText string
	Status       model.BudgetStatus
	StatusClass  string
}

type htmlData struct {
	Month          string
	GeneratedAt    string
	TotalSpend     float64
	PayerCount     int
	UnitCount      int
	Units          []htmlUnit
	Reconciliation []htmlReconRow
}

// generateHTML renders the stakeholder-facing page. Units are ordered by
// total spend descending, biggest spenders first.
func generateHTML(in Input, timestamp, outputDir string, log zerolog.Logger) (string, error) {
	path := filepath.Join(outputDir, fmt.Sprintf("invoice_%s_%s.html", in.Month, timestamp))

	data := htmlData{
		Month:       in.Month,
		GeneratedAt: time.Now().UTC().Format("2006-01-02 15:04 UTC"),
		TotalSpend:  in.Aggregate.TotalSpend(),
		PayerCount:  len(in.Payers),
		UnitCount:   in.Aggregate.Len(),
	}

	in.Aggregate.Each(func(ua *aggregate.UnitAggregate) {
		unit := htmlUnit{
			Name:         ua.Unit,
			Total:        ua.Total,
			AccountCount: len(ua.Accounts),
			TopService:   "N/A",
		}
		ua.Services.Each(func(service string, amount float64) {
			if amount > unit.TopAmount || unit.TopService == "N/A" {
				unit.TopService = service
				unit.TopAmount = amount
			}
		})
		data.Units = append(data.Units, unit)
	})
	sort.SliceStable(data.Units, func(i, j int) bool {
		return data.Units[i].Total > data.Units[j].Total
	})

	if in.Reconciliation != nil {
		for _, name := range in.Reconciliation.Order() {
			rec := in.Reconciliation.Units[name]
			row := htmlReconRow{
				Name:         name,
				Actual:       rec.Actual,
				BudgetText:   "N/A",
				VarianceText: "N/A",
				Status:       rec.Status,
				StatusClass:  "on-track",
			}
			if rec.Status == model.StatusOverrun {
				row.StatusClass = "overrun"
			}
			if rec.Budget != 0 {
				row.BudgetText = fmt.Sprintf("%.2f", rec.Budget)
				row.VarianceText = fmt.Sprintf("%.2f (%+.1f%%)", rec.Variance, rec.VariancePct)
			}
			data.Reconciliation = append(data.Reconciliation, row)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: create %s: %w", path, err)
	}
	defer f.Close()

	if err := htmlTemplate.Execute(f, data); err != nil {
		return "", fmt.Errorf("report: render %s: %w", path, err)
	}

	log.Info().Str("report", path).Msg("html report written")
	return path, nil
}
