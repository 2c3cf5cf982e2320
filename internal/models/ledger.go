package models

import "time"

// Interaction is one completed model call with its timings and token counts.
// Core fields are immutable once written; only Flagged may flip false→true.
type Interaction struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Timestamp     time.Time `gorm:"index" json:"timestamp"`
	SessionID     string    `gorm:"size:100;index" json:"session_id"`
	PromptName    string    `gorm:"size:100" json:"prompt_name"`
	PromptVersion string    `gorm:"size:64" json:"prompt_version"`
	PromptText    string    `gorm:"type:text" json:"prompt_text"`
	ResponseText  string    `gorm:"type:text" json:"response_text"`
	TokensInput   int       `json:"tokens_input"`
	TokensOutput  int       `json:"tokens_output"`
	LatencyMs     int       `json:"latency_ms"`
	Model         string    `gorm:"size:100" json:"model"`
	Temperature   float64   `json:"temperature"`
	Flagged       bool      `gorm:"default:false" json:"flagged"`
	Metadata      string    `gorm:"type:text" json:"metadata"` // opaque JSON blob
}

// Feedback is one user rating of an interaction. Multiple rows per
// interaction are allowed; each counts as an independent observation.
type Feedback struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	InteractionID uint      `gorm:"index;not null" json:"interaction_id"`
	Rating        int       `gorm:"not null" json:"rating"` // 1..5
	Comment       string    `gorm:"type:text" json:"comment"`
	Categories    string    `gorm:"size:500" json:"categories"` // JSON array of labels
	Timestamp     time.Time `json:"timestamp"`
}

// Flag marks an interaction for human review. Flags are a log: re-flagging
// appends another row, while Interaction.Flagged stays monotonically true.
type Flag struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	InteractionID uint      `gorm:"index;not null" json:"interaction_id"`
	FlagType      string    `gorm:"size:50;not null" json:"flag_type"`
	FlagReason    string    `gorm:"type:text" json:"flag_reason"`
	Timestamp     time.Time `json:"timestamp"`
}

// CostRecord stores the derived cost of one interaction. It is an audit
// record against price-table changes, recomputable from token counts.
type CostRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	InteractionID uint      `gorm:"index;not null" json:"interaction_id"`
	Model         string    `gorm:"size:100" json:"model"`
	TokensInput   int       `json:"tokens_input"`
	TokensOutput  int       `json:"tokens_output"`
	InputCost     float64   `json:"input_cost"`
	OutputCost    float64   `json:"output_cost"`
	TotalCost     float64   `json:"total_cost"`
	Timestamp     time.Time `gorm:"index" json:"timestamp"`
}

func (Interaction) TableName() string { return "interactions" }
func (Feedback) TableName() string    { return "feedback" }
func (Flag) TableName() string        { return "flags" }
func (CostRecord) TableName() string  { return "cost_tracking" }
