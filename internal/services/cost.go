package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/acme/supportlens/internal/config"
	"github.com/acme/supportlens/internal/models"
	"gorm.io/gorm"
)

// CostService derives monetary cost from token counts using a per-model
// price table and keeps an audit trail of cost rows per interaction.
type CostService struct {
	db      *gorm.DB
	pricing config.PricingConfig
}

func NewCostService(db *gorm.DB, pricing config.PricingConfig) *CostService {
	return &CostService{db: db, pricing: pricing}
}

// Rate returns the per-1K-token rate for a model. Unknown models fall back
// to the default rate; cost estimation stays available for unlisted models.
func (s *CostService) Rate(model string) config.ModelRate {
	if rate, ok := s.pricing.Models[model]; ok {
		return rate
	}
	return s.pricing.DefaultRate
}

// TrackInteractionCost computes and persists the cost of one interaction,
// returning the total. The interaction id is taken on trust: cost tracking
// must not fail because the referenced row was pruned.
func (s *CostService) TrackInteractionCost(interactionID uint, tokensInput, tokensOutput int, model string) (float64, error) {
	if tokensInput < 0 || tokensOutput < 0 {
		return 0, fmt.Errorf("token counts must be non-negative")
	}

	rate := s.Rate(model)
	inputCost := float64(tokensInput) / 1000 * rate.InputPer1K
	outputCost := float64(tokensOutput) / 1000 * rate.OutputPer1K
	totalCost := inputCost + outputCost

	record := models.CostRecord{
		InteractionID: interactionID,
		Model:         model,
		TokensInput:   tokensInput,
		TokensOutput:  tokensOutput,
		InputCost:     inputCost,
		OutputCost:    outputCost,
		TotalCost:     totalCost,
		Timestamp:     time.Now(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return 0, fmt.Errorf("record cost: %w", err)
	}
	return totalCost, nil
}

// CostBucket is one period of the report's time series.
type CostBucket struct {
	Period            string  `json:"period"`
	Cost              float64 `json:"cost"`
	TokensInput       int64   `json:"tokens_input"`
	TokensOutput      int64   `json:"tokens_output"`
	InteractionsCount int64   `json:"interactions_count"`
}

// ModelCost is the per-model slice of the report.
type ModelCost struct {
	Model             string  `json:"model"`
	Cost              float64 `json:"cost"`
	TokensInput       int64   `json:"tokens_input"`
	TokensOutput      int64   `json:"tokens_output"`
	InteractionsCount int64   `json:"interactions_count"`
}

type CostReport struct {
	StartDate         time.Time    `json:"start_date"`
	EndDate           time.Time    `json:"end_date"`
	GroupBy           string       `json:"group_by"`
	TotalCost         float64      `json:"total_cost"`
	TotalInteractions int64        `json:"total_interactions"`
	TimeSeries        []CostBucket `json:"time_series"`
	ByModel           []ModelCost  `json:"by_model"`
}

// GetCostReport aggregates cost rows in [start, end]. Zero bounds default to
// the last 30 days ending now; groupBy is day, week, or month, with anything
// else treated as day. Both the time series and the per-model breakdown are
// computed from a single result set, and the report totals are sums over the
// time series, so the displayed total always equals the sum of the displayed
// periods.
func (s *CostService) GetCostReport(start, end time.Time, groupBy string) (*CostReport, error) {
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}
	switch groupBy {
	case "day", "week", "month":
	default:
		groupBy = "day"
	}

	var records []models.CostRecord
	err := s.db.
		Where("timestamp BETWEEN ? AND ?", start, end).
		Order("timestamp ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("load cost records: %w", err)
	}

	var order []string
	buckets := make(map[string]*CostBucket)
	byModel := make(map[string]*ModelCost)

	for _, r := range records {
		key := periodKey(r.Timestamp, groupBy)
		bucket, ok := buckets[key]
		if !ok {
			// Records arrive in timestamp order, so first appearance
			// keeps the series chronological.
			bucket = &CostBucket{Period: key}
			buckets[key] = bucket
			order = append(order, key)
		}
		bucket.Cost += r.TotalCost
		bucket.TokensInput += int64(r.TokensInput)
		bucket.TokensOutput += int64(r.TokensOutput)
		bucket.InteractionsCount++

		mc, ok := byModel[r.Model]
		if !ok {
			mc = &ModelCost{Model: r.Model}
			byModel[r.Model] = mc
		}
		mc.Cost += r.TotalCost
		mc.TokensInput += int64(r.TokensInput)
		mc.TokensOutput += int64(r.TokensOutput)
		mc.InteractionsCount++
	}

	series := make([]CostBucket, 0, len(order))
	for _, key := range order {
		series = append(series, *buckets[key])
	}

	modelBreakdown := make([]ModelCost, 0, len(byModel))
	for _, mc := range byModel {
		modelBreakdown = append(modelBreakdown, *mc)
	}
	sort.Slice(modelBreakdown, func(i, j int) bool {
		return modelBreakdown[i].Cost > modelBreakdown[j].Cost
	})

	report := &CostReport{
		StartDate:  start,
		EndDate:    end,
		GroupBy:    groupBy,
		TimeSeries: series,
		ByModel:    modelBreakdown,
	}
	for _, bucket := range series {
		report.TotalCost += bucket.Cost
		report.TotalInteractions += bucket.InteractionsCount
	}
	return report, nil
}

// periodKey formats a timestamp as its bucket label for the grouping.
func periodKey(t time.Time, groupBy string) string {
	switch groupBy {
	case "week":
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case "month":
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}
