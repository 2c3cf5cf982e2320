package models

import "time"

// PromptTemplate is the current record for a named prompt. Saving a prompt
// overwrites this row and appends a PromptVersion; history is never mutated.
type PromptTemplate struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Version     string    `gorm:"size:64;not null" json:"version"`
	Template    string    `gorm:"type:text;not null" json:"template"`
	Description string    `gorm:"size:500" json:"description"`
	Metadata    string    `gorm:"type:text" json:"metadata"` // opaque JSON blob, stored but never interpreted
	CreatedAt   time.Time `json:"created_at"`
}

// PromptVersion is one immutable history entry, keyed by (name, version).
type PromptVersion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex:idx_prompt_name_version;size:100;not null" json:"name"`
	Version     string    `gorm:"uniqueIndex:idx_prompt_name_version;size:64;not null" json:"version"`
	Template    string    `gorm:"type:text;not null" json:"template"`
	Description string    `gorm:"size:500" json:"description"`
	Metadata    string    `gorm:"type:text" json:"metadata"`
	CreatedAt   time.Time `json:"created_at"`
}

func (PromptTemplate) TableName() string { return "prompt_templates" }
func (PromptVersion) TableName() string  { return "prompt_versions" }
