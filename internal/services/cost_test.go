package services

import (
	"math"
	"testing"
	"time"

	"github.com/acme/supportlens/internal/config"
	"github.com/acme/supportlens/internal/models"
	"gorm.io/gorm"
)

func newTestCostService(t *testing.T) (*CostService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewCostService(db, config.DefaultPricing()), db
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTrackInteractionCost_KnownModel(t *testing.T) {
	svc, _ := newTestCostService(t)

	total, err := svc.TrackInteractionCost(1, 1000, 1000, "gpt-4")
	if err != nil {
		t.Fatalf("TrackInteractionCost: %v", err)
	}
	if !almostEqual(total, 0.09) {
		t.Errorf("total = %v, expected 0.09", total)
	}
}

func TestTrackInteractionCost_UnknownModelFallback(t *testing.T) {
	svc, _ := newTestCostService(t)

	total, err := svc.TrackInteractionCost(1, 1000, 1000, "foo")
	if err != nil {
		t.Fatalf("TrackInteractionCost: %v", err)
	}
	if !almostEqual(total, 0.004) {
		t.Errorf("total = %v, expected default-rate 0.004", total)
	}
}

func TestTrackInteractionCost_PersistsBreakdown(t *testing.T) {
	svc, db := newTestCostService(t)

	if _, err := svc.TrackInteractionCost(7, 1000, 500, "gpt-4"); err != nil {
		t.Fatalf("TrackInteractionCost: %v", err)
	}

	var record models.CostRecord
	if err := db.Where("interaction_id = ?", 7).First(&record).Error; err != nil {
		t.Fatalf("load cost record: %v", err)
	}
	if !almostEqual(record.InputCost, 0.03) {
		t.Errorf("InputCost = %v, expected 0.03", record.InputCost)
	}
	if !almostEqual(record.OutputCost, 0.03) {
		t.Errorf("OutputCost = %v, expected 0.03", record.OutputCost)
	}
	if !almostEqual(record.TotalCost, 0.06) {
		t.Errorf("TotalCost = %v, expected 0.06", record.TotalCost)
	}
	if record.Model != "gpt-4" {
		t.Errorf("Model = %q", record.Model)
	}
}

func TestTrackInteractionCost_RejectsNegativeTokens(t *testing.T) {
	svc, db := newTestCostService(t)

	if _, err := svc.TrackInteractionCost(1, -1, 0, "gpt-4"); err == nil {
		t.Error("negative tokens accepted")
	}
	var count int64
	db.Model(&models.CostRecord{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected cost call persisted %d rows", count)
	}
}

// insertCostRecord writes a cost row at a specific timestamp for report tests.
func insertCostRecord(t *testing.T, db *gorm.DB, ts time.Time, model string, cost float64) {
	t.Helper()
	record := models.CostRecord{
		InteractionID: 1,
		Model:         model,
		TokensInput:   100,
		TokensOutput:  100,
		InputCost:     cost / 2,
		OutputCost:    cost / 2,
		TotalCost:     cost,
		Timestamp:     ts,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("insert cost record: %v", err)
	}
}

func TestGetCostReport_TotalEqualsSeriesSum(t *testing.T) {
	svc, db := newTestCostService(t)

	now := time.Now()
	insertCostRecord(t, db, now.AddDate(0, 0, -5), "gpt-4", 0.10)
	insertCostRecord(t, db, now.AddDate(0, 0, -5), "gpt-4", 0.05)
	insertCostRecord(t, db, now.AddDate(0, 0, -1), "gpt-3.5-turbo", 0.02)
	insertCostRecord(t, db, now, "foo", 0.001)

	for _, groupBy := range []string{"day", "week", "month", "bogus"} {
		report, err := svc.GetCostReport(time.Time{}, time.Time{}, groupBy)
		if err != nil {
			t.Fatalf("GetCostReport(%s): %v", groupBy, err)
		}

		var seriesSum float64
		var seriesCount int64
		for _, bucket := range report.TimeSeries {
			seriesSum += bucket.Cost
			seriesCount += bucket.InteractionsCount
		}
		if !almostEqual(report.TotalCost, seriesSum) {
			t.Errorf("groupBy %s: TotalCost %v != series sum %v", groupBy, report.TotalCost, seriesSum)
		}
		if report.TotalInteractions != seriesCount {
			t.Errorf("groupBy %s: TotalInteractions %d != series count %d", groupBy, report.TotalInteractions, seriesCount)
		}
		if !almostEqual(seriesSum, 0.171) {
			t.Errorf("groupBy %s: series sum = %v, expected 0.171", groupBy, seriesSum)
		}
	}
}

func TestGetCostReport_GroupByFallback(t *testing.T) {
	svc, _ := newTestCostService(t)

	report, err := svc.GetCostReport(time.Time{}, time.Time{}, "fortnight")
	if err != nil {
		t.Fatalf("GetCostReport: %v", err)
	}
	if report.GroupBy != "day" {
		t.Errorf("GroupBy = %q, expected fallback to day", report.GroupBy)
	}
}

func TestGetCostReport_SeriesChronological(t *testing.T) {
	svc, db := newTestCostService(t)

	now := time.Now()
	insertCostRecord(t, db, now.AddDate(0, 0, -3), "gpt-4", 0.10)
	insertCostRecord(t, db, now.AddDate(0, 0, -8), "gpt-4", 0.20)
	insertCostRecord(t, db, now, "gpt-4", 0.30)

	report, err := svc.GetCostReport(time.Time{}, time.Time{}, "day")
	if err != nil {
		t.Fatalf("GetCostReport: %v", err)
	}
	if len(report.TimeSeries) != 3 {
		t.Fatalf("got %d buckets, expected 3", len(report.TimeSeries))
	}
	for i := 1; i < len(report.TimeSeries); i++ {
		if report.TimeSeries[i-1].Period >= report.TimeSeries[i].Period {
			t.Errorf("series not ascending: %q before %q",
				report.TimeSeries[i-1].Period, report.TimeSeries[i].Period)
		}
	}
}

func TestGetCostReport_ByModelDescendingCost(t *testing.T) {
	svc, db := newTestCostService(t)

	now := time.Now()
	insertCostRecord(t, db, now, "cheap-model", 0.01)
	insertCostRecord(t, db, now, "expensive-model", 0.50)
	insertCostRecord(t, db, now, "cheap-model", 0.02)

	report, err := svc.GetCostReport(time.Time{}, time.Time{}, "day")
	if err != nil {
		t.Fatalf("GetCostReport: %v", err)
	}
	if len(report.ByModel) != 2 {
		t.Fatalf("got %d models, expected 2", len(report.ByModel))
	}
	if report.ByModel[0].Model != "expensive-model" {
		t.Errorf("first model = %q, expected expensive-model", report.ByModel[0].Model)
	}
	if !almostEqual(report.ByModel[1].Cost, 0.03) {
		t.Errorf("cheap-model cost = %v, expected 0.03", report.ByModel[1].Cost)
	}
}

func TestGetCostReport_DefaultWindowIs30Days(t *testing.T) {
	svc, db := newTestCostService(t)

	now := time.Now()
	insertCostRecord(t, db, now.AddDate(0, 0, -40), "gpt-4", 1.0)
	insertCostRecord(t, db, now.AddDate(0, 0, -2), "gpt-4", 0.25)

	report, err := svc.GetCostReport(time.Time{}, time.Time{}, "day")
	if err != nil {
		t.Fatalf("GetCostReport: %v", err)
	}
	if !almostEqual(report.TotalCost, 0.25) {
		t.Errorf("TotalCost = %v, expected 40-day-old record excluded", report.TotalCost)
	}
}

func TestPeriodKey(t *testing.T) {
	ts := time.Date(2024, 3, 7, 15, 4, 5, 0, time.UTC) // a Thursday

	if got := periodKey(ts, "day"); got != "2024-03-07" {
		t.Errorf("day key = %q", got)
	}
	if got := periodKey(ts, "month"); got != "2024-03" {
		t.Errorf("month key = %q", got)
	}
	if got := periodKey(ts, "week"); got != "2024-W10" {
		t.Errorf("week key = %q", got)
	}
	// Unrecognized grouping buckets by day.
	if got := periodKey(ts, "fortnight"); got != "2024-03-07" {
		t.Errorf("fallback key = %q", got)
	}
}

func TestRate_Lookup(t *testing.T) {
	svc := NewCostService(nil, config.DefaultPricing())

	gpt4 := svc.Rate("gpt-4")
	if !almostEqual(gpt4.InputPer1K, 0.03) || !almostEqual(gpt4.OutputPer1K, 0.06) {
		t.Errorf("gpt-4 rate = %+v", gpt4)
	}

	unknown := svc.Rate("does-not-exist")
	if !almostEqual(unknown.InputPer1K, 0.002) || !almostEqual(unknown.OutputPer1K, 0.002) {
		t.Errorf("fallback rate = %+v", unknown)
	}
}
