package services

import (
	"time"

	"github.com/acme/supportlens/pkg/logger"

	"github.com/robfig/cron/v3"
)

// DailySummaryService logs a once-a-day operational summary of ledger
// metrics and spend, for operators without the dashboard in front of them.
type DailySummaryService struct {
	ledger    *LedgerService
	costs     *CostService
	scheduler *cron.Cron
}

func NewDailySummaryService(ledger *LedgerService, costs *CostService) *DailySummaryService {
	return &DailySummaryService{
		ledger: ledger,
		costs:  costs,
	}
}

// StartScheduler begins emitting the summary every day at 08:00 server time.
func (s *DailySummaryService) StartScheduler() {
	s.scheduler = cron.New()
	if _, err := s.scheduler.AddFunc("0 8 * * *", s.emitSummary); err != nil {
		logger.Errorf("[Summary] Failed to schedule daily summary: %v", err)
		return
	}
	s.scheduler.Start()
	logger.Info().Msg("daily summary scheduler started")
}

// StopScheduler stops the cron loop.
func (s *DailySummaryService) StopScheduler() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *DailySummaryService) emitSummary() {
	metrics, err := s.ledger.GetMetrics(1)
	if err != nil {
		logger.Errorf("[Summary] Failed to compute metrics: %v", err)
		return
	}

	now := time.Now()
	report, err := s.costs.GetCostReport(now.AddDate(0, 0, -1), now, "day")
	if err != nil {
		logger.Errorf("[Summary] Failed to compute cost report: %v", err)
		return
	}

	event := logger.Info().
		Int64("interactions", metrics.TotalCount).
		Float64("avg_latency_ms", metrics.AvgLatencyMs).
		Int64("flags", metrics.FlagCount).
		Float64("cost_usd", report.TotalCost)
	if metrics.AvgRating != nil {
		event = event.Float64("avg_rating", *metrics.AvgRating)
	}
	event.Msg("daily summary")
}
