package extract

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/rs/zerolog"

	"github.com/costline/costline/internal/model"
)

// DustThreshold is the amount below which a charge is dropped at
// normalisation. Without it every report fills up with services that
// charged a fraction of a penny.
const DustThreshold = 0.001

// Extractor queries Cost Explorer and normalises the responses.
type Extractor struct {
	client CostExplorerAPI
	log    zerolog.Logger
	pacer  *pacer
	now    func() time.Time
}

// New returns an Extractor over the given Cost Explorer client.
func New(client CostExplorerAPI, log zerolog.Logger) *Extractor {
	return &Extractor{
		client: client,
		log:    log,
		pacer:  newPacer(),
		now:    time.Now,
	}
}

// MonthlyCosts extracts one payer account's daily cost records for a month
// given as "YYYY-MM". Results are grouped by service, dust-filtered, and
// returned flat. An empty result means no spend, not an error.
func (e *Extractor) MonthlyCosts(ctx context.Context, payerAccountID, month string) ([]model.CostRecord, error) {
	start, end, err := monthRange(month, e.now().UTC())
	if err != nil {
		return nil, err
	}

	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(start),
			End:   aws.String(end),
		},
		Granularity: cetypes.GranularityDaily,
		Metrics:     []string{"UnblendedCost", "BlendedCost"},
		GroupBy: []cetypes.GroupDefinition{{
			Type: cetypes.GroupDefinitionTypeDimension,
			Key:  aws.String("SERVICE"),
		}},
	}
	if payerAccountID != "" {
		input.Filter = &cetypes.Expression{
			Dimensions: &cetypes.DimensionValues{
				Key:          cetypes.DimensionLinkedAccount,
				Values:       []string{payerAccountID},
				MatchOptions: []cetypes.MatchOption{cetypes.MatchOptionEquals},
			},
		}
	}

	var results []cetypes.ResultByTime
	for {
		e.pacer.wait()
		out, err := e.client.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("extract: cost explorer query for %s: %w", payerAccountID, err)
		}
		results = append(results, out.ResultsByTime...)

		if out.NextPageToken == nil {
			break
		}
		input.NextPageToken = out.NextPageToken
	}

	return e.normalise(results, payerAccountID), nil
}

// normalise flattens Cost Explorer periods into records, dropping dust.
func (e *Extractor) normalise(results []cetypes.ResultByTime, payerID string) []model.CostRecord {
	var records []model.CostRecord

	for _, period := range results {
		date := aws.ToString(period.TimePeriod.Start)

		for _, group := range period.Groups {
			if len(group.Keys) == 0 {
				continue
			}
			service := group.Keys[0]

			unblended, currency, ok := e.metric(group.Metrics, "UnblendedCost")
			if !ok {
				continue
			}
			blended, _, _ := e.metric(group.Metrics, "BlendedCost")

			if unblended > DustThreshold {
				records = append(records, model.CostRecord{
					Date:          date,
					AccountID:     payerID,
					Service:       service,
					Amount:        round4(unblended),
					BlendedAmount: round4(blended),
					Currency:      currency,
				})
			}
		}

		// Ungrouped periods still carry a total worth keeping.
		if len(period.Groups) == 0 && period.Total != nil {
			if total, currency, ok := e.metric(period.Total, "UnblendedCost"); ok && total > DustThreshold {
				records = append(records, model.CostRecord{
					Date:      date,
					AccountID: payerID,
					Service:   "Total",
					Amount:    round4(total),
					Currency:  currency,
				})
			}
		}
	}

	return records
}

// metric extracts one named metric's amount and currency unit. Amounts
// that fail to parse are logged and skipped rather than aborting the run.
func (e *Extractor) metric(metrics map[string]cetypes.MetricValue, name string) (float64, string, bool) {
	mv, ok := metrics[name]
	if !ok || mv.Amount == nil {
		return 0, "", false
	}
	amount, err := strconv.ParseFloat(aws.ToString(mv.Amount), 64)
	if err != nil {
		e.log.Warn().Str("metric", name).Str("raw", aws.ToString(mv.Amount)).
			Msg("unparseable metric amount, skipping")
		return 0, "", false
	}
	currency := aws.ToString(mv.Unit)
	if currency == "" {
		currency = "USD"
	}
	return amount, currency, true
}

// monthRange computes the start and end dates for a "YYYY-MM" month.
// For the current month the end date is clamped to today.
func monthRange(month string, today time.Time) (string, string, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return "", "", fmt.Errorf("extract: invalid month %q (want YYYY-MM): %w", month, err)
	}

	start := t.Format("2006-01-02")
	// Day zero of the next month is the last day of this one.
	lastDay := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	end := lastDay.Format("2006-01-02")

	if todayStr := today.Format("2006-01-02"); end > todayStr {
		end = todayStr
	}
	return start, end, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
