package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/acme/supportlens/pkg/logger"

	"github.com/acme/supportlens/internal/models"
	"gorm.io/gorm"
)

// FlagTypeLowRating is attached automatically to feedback with rating <= 2.
const FlagTypeLowRating = "low_rating"

// lowRatingThreshold: feedback at or below this rating flags the interaction.
const lowRatingThreshold = 2

// LedgerService is the append-only log of interactions, feedback, and flags,
// and the source of time-windowed metrics over them.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

type RecordInteractionParams struct {
	SessionID     string
	PromptName    string
	PromptVersion string
	PromptText    string
	ResponseText  string
	TokensInput   int
	TokensOutput  int
	LatencyMs     int
	Model         string
	Temperature   float64
	Metadata      string // opaque JSON blob, stored as-is
}

// RecordInteraction appends one interaction row and returns its id. The
// caller supplies an already-resolved prompt version; beyond range sanity on
// the numeric fields, nothing is validated here.
func (s *LedgerService) RecordInteraction(params RecordInteractionParams) (uint, error) {
	if params.TokensInput < 0 || params.TokensOutput < 0 {
		return 0, fmt.Errorf("token counts must be non-negative")
	}
	if params.LatencyMs < 0 {
		return 0, fmt.Errorf("latency must be non-negative")
	}

	interaction := models.Interaction{
		Timestamp:     time.Now(),
		SessionID:     params.SessionID,
		PromptName:    params.PromptName,
		PromptVersion: params.PromptVersion,
		PromptText:    params.PromptText,
		ResponseText:  params.ResponseText,
		TokensInput:   params.TokensInput,
		TokensOutput:  params.TokensOutput,
		LatencyMs:     params.LatencyMs,
		Model:         params.Model,
		Temperature:   params.Temperature,
		Metadata:      params.Metadata,
	}
	if err := s.db.Create(&interaction).Error; err != nil {
		return 0, fmt.Errorf("record interaction: %w", err)
	}

	logger.Info().
		Uint("interaction_id", interaction.ID).
		Str("session_id", params.SessionID).
		Msg("interaction recorded")
	return interaction.ID, nil
}

// RecordFeedback validates and appends a feedback row. Feedback rated at or
// below the low-rating threshold also flags the interaction; the feedback
// insert and the flag write happen in one transaction so a crash cannot
// leave one without the other.
func (s *LedgerService) RecordFeedback(interactionID uint, rating int, comment string, categories []string) (uint, error) {
	if rating < 1 || rating > 5 {
		return 0, ErrInvalidRating
	}

	categoriesJSON, err := json.Marshal(categories)
	if err != nil {
		return 0, fmt.Errorf("encode categories: %w", err)
	}

	var feedbackID uint
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var interaction models.Interaction
		if err := tx.First(&interaction, interactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInteractionNotFound
			}
			return err
		}

		feedback := models.Feedback{
			InteractionID: interactionID,
			Rating:        rating,
			Comment:       comment,
			Categories:    string(categoriesJSON),
			Timestamp:     time.Now(),
		}
		if err := tx.Create(&feedback).Error; err != nil {
			return fmt.Errorf("record feedback: %w", err)
		}
		feedbackID = feedback.ID

		if rating <= lowRatingThreshold {
			reason := fmt.Sprintf("Low rating (%d/5)", rating)
			if _, err := flagInteraction(tx, interactionID, FlagTypeLowRating, reason); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info().
		Uint("feedback_id", feedbackID).
		Uint("interaction_id", interactionID).
		Int("rating", rating).
		Msg("feedback recorded")
	return feedbackID, nil
}

// FlagInteraction appends a flag row and marks the interaction flagged.
// Flags are a log: re-flagging appends another row, and the flagged bit
// never resets.
func (s *LedgerService) FlagInteraction(interactionID uint, flagType, flagReason string) (uint, error) {
	var flagID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var interaction models.Interaction
		if err := tx.First(&interaction, interactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInteractionNotFound
			}
			return err
		}

		id, err := flagInteraction(tx, interactionID, flagType, flagReason)
		if err != nil {
			return err
		}
		flagID = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return flagID, nil
}

// flagInteraction does the two flag writes inside the caller's transaction.
func flagInteraction(tx *gorm.DB, interactionID uint, flagType, flagReason string) (uint, error) {
	if err := tx.Model(&models.Interaction{}).
		Where("id = ?", interactionID).
		Update("flagged", true).Error; err != nil {
		return 0, fmt.Errorf("mark interaction flagged: %w", err)
	}

	flag := models.Flag{
		InteractionID: interactionID,
		FlagType:      flagType,
		FlagReason:    flagReason,
		Timestamp:     time.Now(),
	}
	if err := tx.Create(&flag).Error; err != nil {
		return 0, fmt.Errorf("record flag: %w", err)
	}

	logger.Warn().
		Uint("interaction_id", interactionID).
		Str("flag_type", flagType).
		Str("flag_reason", flagReason).
		Msg("interaction flagged")
	return flag.ID, nil
}

// MetricsReport aggregates interactions over the window [now-days, now].
// AvgRating is nil when no feedback falls in the window; zero is not a valid
// rating and would corrupt downstream displays.
type MetricsReport struct {
	TotalCount      int64    `json:"total_count"`
	AvgLatencyMs    float64  `json:"avg_latency_ms"`
	AvgTokensInput  float64  `json:"avg_tokens_input"`
	AvgTokensOutput float64  `json:"avg_tokens_output"`
	AvgRating       *float64 `json:"avg_rating"`
	FlagCount       int64    `json:"flag_count"`
	Days            int      `json:"days"`
}

// GetMetrics computes summary metrics for interactions in the last `days`
// days. Feedback and flag aggregates join through the interactions table and
// filter on the interaction's timestamp, not their own. Averages are rounded
// to two decimals here, at the reporting boundary.
func (s *LedgerService) GetMetrics(days int) (*MetricsReport, error) {
	if days <= 0 {
		return nil, ErrInvalidWindow
	}
	since := time.Now().AddDate(0, 0, -days)

	var agg struct {
		TotalCount      int64
		AvgLatencyMs    float64
		AvgTokensInput  float64
		AvgTokensOutput float64
	}
	err := s.db.Model(&models.Interaction{}).
		Where("timestamp >= ?", since).
		Select("COUNT(*) as total_count, " +
			"COALESCE(AVG(latency_ms), 0) as avg_latency_ms, " +
			"COALESCE(AVG(tokens_input), 0) as avg_tokens_input, " +
			"COALESCE(AVG(tokens_output), 0) as avg_tokens_output").
		Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate interactions: %w", err)
	}

	var ratingAgg struct {
		FeedbackCount int64
		AvgRating     float64
	}
	err = s.db.Model(&models.Feedback{}).
		Joins("JOIN interactions ON interactions.id = feedback.interaction_id").
		Where("interactions.timestamp >= ?", since).
		Select("COUNT(*) as feedback_count, COALESCE(AVG(feedback.rating), 0) as avg_rating").
		Scan(&ratingAgg).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate feedback: %w", err)
	}

	var flagCount int64
	err = s.db.Model(&models.Flag{}).
		Joins("JOIN interactions ON interactions.id = flags.interaction_id").
		Where("interactions.timestamp >= ?", since).
		Count(&flagCount).Error
	if err != nil {
		return nil, fmt.Errorf("count flags: %w", err)
	}

	report := &MetricsReport{
		TotalCount:      agg.TotalCount,
		AvgLatencyMs:    round2(agg.AvgLatencyMs),
		AvgTokensInput:  round2(agg.AvgTokensInput),
		AvgTokensOutput: round2(agg.AvgTokensOutput),
		FlagCount:       flagCount,
		Days:            days,
	}
	if ratingAgg.FeedbackCount > 0 {
		avg := round2(ratingAgg.AvgRating)
		report.AvgRating = &avg
	}
	return report, nil
}

// GetInteraction returns one interaction by id.
func (s *LedgerService) GetInteraction(id uint) (*models.Interaction, error) {
	var interaction models.Interaction
	err := s.db.First(&interaction, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInteractionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &interaction, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
