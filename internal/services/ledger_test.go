package services

import (
	"errors"
	"testing"
	"time"

	"github.com/acme/supportlens/internal/models"
	"gorm.io/gorm"
)

func TestRecordInteraction_AssignsIDs(t *testing.T) {
	ledger := NewLedgerService(setupTestDB(t))

	first := recordTestInteraction(t, ledger)
	second := recordTestInteraction(t, ledger)
	if second <= first {
		t.Errorf("ids not increasing: %d then %d", first, second)
	}
}

func TestRecordInteraction_RejectsNegativeCounts(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	_, err := ledger.RecordInteraction(RecordInteractionParams{TokensInput: -1})
	if err == nil {
		t.Error("negative tokens_input accepted")
	}
	_, err = ledger.RecordInteraction(RecordInteractionParams{LatencyMs: -5})
	if err == nil {
		t.Error("negative latency accepted")
	}

	var count int64
	db.Model(&models.Interaction{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected interactions were persisted: %d rows", count)
	}
}

func TestRecordFeedback_LowRatingFlags(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	id := recordTestInteraction(t, ledger)

	feedbackID, err := ledger.RecordFeedback(id, 1, "unhelpful", []string{"accuracy"})
	if err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}
	if feedbackID == 0 {
		t.Error("feedback id is zero")
	}

	var feedbackCount, flagCount int64
	db.Model(&models.Feedback{}).Where("interaction_id = ?", id).Count(&feedbackCount)
	db.Model(&models.Flag{}).Where("interaction_id = ?", id).Count(&flagCount)
	if feedbackCount != 1 {
		t.Errorf("feedback rows = %d, expected 1", feedbackCount)
	}
	if flagCount != 1 {
		t.Errorf("flag rows = %d, expected 1", flagCount)
	}

	var flag models.Flag
	db.Where("interaction_id = ?", id).First(&flag)
	if flag.FlagType != FlagTypeLowRating {
		t.Errorf("flag_type = %q, expected %q", flag.FlagType, FlagTypeLowRating)
	}
	if flag.FlagReason != "Low rating (1/5)" {
		t.Errorf("flag_reason = %q, expected %q", flag.FlagReason, "Low rating (1/5)")
	}

	var interaction models.Interaction
	db.First(&interaction, id)
	if !interaction.Flagged {
		t.Error("interaction not flagged after low rating")
	}
}

func TestRecordFeedback_MidRatingDoesNotFlag(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	id := recordTestInteraction(t, ledger)

	if _, err := ledger.RecordFeedback(id, 3, "", nil); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}

	var feedbackCount, flagCount int64
	db.Model(&models.Feedback{}).Where("interaction_id = ?", id).Count(&feedbackCount)
	db.Model(&models.Flag{}).Where("interaction_id = ?", id).Count(&flagCount)
	if feedbackCount != 1 {
		t.Errorf("feedback rows = %d, expected 1", feedbackCount)
	}
	if flagCount != 0 {
		t.Errorf("flag rows = %d, expected 0", flagCount)
	}

	var interaction models.Interaction
	db.First(&interaction, id)
	if interaction.Flagged {
		t.Error("interaction flagged by rating 3")
	}
}

func TestRecordFeedback_RatingOutOfRange(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	id := recordTestInteraction(t, ledger)

	for _, rating := range []int{0, 6, -1} {
		if _, err := ledger.RecordFeedback(id, rating, "", nil); !errors.Is(err, ErrInvalidRating) {
			t.Errorf("rating %d: err = %v, expected ErrInvalidRating", rating, err)
		}
	}

	var feedbackCount, flagCount int64
	db.Model(&models.Feedback{}).Count(&feedbackCount)
	db.Model(&models.Flag{}).Count(&flagCount)
	if feedbackCount != 0 || flagCount != 0 {
		t.Errorf("rejected feedback left rows behind: %d feedback, %d flags", feedbackCount, flagCount)
	}
}

func TestRecordFeedback_UnknownInteraction(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	if _, err := ledger.RecordFeedback(9999, 5, "", nil); !errors.Is(err, ErrInteractionNotFound) {
		t.Errorf("err = %v, expected ErrInteractionNotFound", err)
	}

	var count int64
	db.Model(&models.Feedback{}).Count(&count)
	if count != 0 {
		t.Errorf("feedback persisted for unknown interaction: %d rows", count)
	}
}

func TestFlagInteraction_AppendsLog(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	id := recordTestInteraction(t, ledger)

	if _, err := ledger.FlagInteraction(id, "policy", "manual review"); err != nil {
		t.Fatalf("first FlagInteraction: %v", err)
	}
	if _, err := ledger.FlagInteraction(id, "policy", "second look"); err != nil {
		t.Fatalf("second FlagInteraction: %v", err)
	}

	var flagCount int64
	db.Model(&models.Flag{}).Where("interaction_id = ?", id).Count(&flagCount)
	if flagCount != 2 {
		t.Errorf("flag rows = %d, expected 2 (flags are a log)", flagCount)
	}

	var interaction models.Interaction
	db.First(&interaction, id)
	if !interaction.Flagged {
		t.Error("interaction not flagged")
	}
}

func TestFlagInteraction_UnknownInteraction(t *testing.T) {
	ledger := NewLedgerService(setupTestDB(t))

	if _, err := ledger.FlagInteraction(4242, "policy", "x"); !errors.Is(err, ErrInteractionNotFound) {
		t.Errorf("err = %v, expected ErrInteractionNotFound", err)
	}
}

// backdateInteraction inserts an interaction outside the metrics window.
func backdateInteraction(t *testing.T, db *gorm.DB, age time.Duration) uint {
	t.Helper()
	interaction := models.Interaction{
		Timestamp:    time.Now().Add(-age),
		SessionID:    "old-session",
		TokensInput:  500,
		TokensOutput: 500,
		LatencyMs:    9000,
		Model:        "gpt-4",
	}
	if err := db.Create(&interaction).Error; err != nil {
		t.Fatalf("insert backdated interaction: %v", err)
	}
	return interaction.ID
}

func TestGetMetrics_WindowExcludesOldInteractions(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	for i := 0; i < 3; i++ {
		recordTestInteraction(t, ledger)
	}
	for i := 0; i < 2; i++ {
		backdateInteraction(t, db, 10*24*time.Hour)
	}

	metrics, err := ledger.GetMetrics(7)
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if metrics.TotalCount != 3 {
		t.Errorf("TotalCount = %d, expected 3", metrics.TotalCount)
	}
	if metrics.Days != 7 {
		t.Errorf("Days = %d, expected 7", metrics.Days)
	}
	if metrics.AvgRating != nil {
		t.Errorf("AvgRating = %v, expected nil with no feedback", *metrics.AvgRating)
	}
	// The backdated rows carry extreme latency; in-window average must not move.
	if metrics.AvgLatencyMs != 150 {
		t.Errorf("AvgLatencyMs = %v, expected 150", metrics.AvgLatencyMs)
	}
}

func TestGetMetrics_FeedbackFilteredByInteractionTimestamp(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	recent := recordTestInteraction(t, ledger)
	old := backdateInteraction(t, db, 10*24*time.Hour)

	if _, err := ledger.RecordFeedback(recent, 4, "", nil); err != nil {
		t.Fatalf("feedback on recent: %v", err)
	}
	// Feedback submitted now on an old interaction counts toward the old
	// interaction's window, not today's.
	if _, err := ledger.RecordFeedback(old, 1, "", nil); err != nil {
		t.Fatalf("feedback on old: %v", err)
	}

	metrics, err := ledger.GetMetrics(7)
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if metrics.AvgRating == nil {
		t.Fatal("AvgRating nil, expected average of in-window feedback")
	}
	if *metrics.AvgRating != 4 {
		t.Errorf("AvgRating = %v, expected 4 (old interaction's rating excluded)", *metrics.AvgRating)
	}
	// The low rating on the old interaction flagged it, but the flag joins
	// through the old interaction and stays outside the window.
	if metrics.FlagCount != 0 {
		t.Errorf("FlagCount = %d, expected 0", metrics.FlagCount)
	}
}

func TestGetMetrics_AveragesRounded(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	for _, latency := range []int{100, 101, 101} {
		if _, err := ledger.RecordInteraction(RecordInteractionParams{
			TokensInput:  10,
			TokensOutput: 10,
			LatencyMs:    latency,
		}); err != nil {
			t.Fatalf("RecordInteraction: %v", err)
		}
	}

	metrics, err := ledger.GetMetrics(7)
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if metrics.AvgLatencyMs != 100.67 {
		t.Errorf("AvgLatencyMs = %v, expected 100.67", metrics.AvgLatencyMs)
	}
}

func TestGetMetrics_InvalidWindow(t *testing.T) {
	ledger := NewLedgerService(setupTestDB(t))

	for _, days := range []int{0, -3} {
		if _, err := ledger.GetMetrics(days); !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("days %d: err = %v, expected ErrInvalidWindow", days, err)
		}
	}
}
