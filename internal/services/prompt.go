package services

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/acme/supportlens/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PromptService is the content-addressed store for named prompt templates.
// Each save overwrites the current record for a name and appends an
// immutable history entry keyed by (name, version).
type PromptService struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPromptService(db *gorm.DB) *PromptService {
	return &PromptService{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

// nameLock returns the mutex serializing saves for one prompt name, so the
// current write and the history append cannot interleave with a racing
// writer for the same name.
func (s *PromptService) nameLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[name] = lock
	}
	return lock
}

type SavePromptParams struct {
	Name        string
	Template    string
	Description string
	Version     string // optional explicit label; bypasses content addressing
	Metadata    string // opaque JSON blob
}

// ContentVersion derives the version id for a template body: the first 8 hex
// characters of its md5 digest. Identical bodies always hash to the same id.
func ContentVersion(template string) string {
	sum := md5.Sum([]byte(template))
	return hex.EncodeToString(sum[:])[:8]
}

// Save writes the current record for the name and appends the history entry
// in one transaction. It returns the version id, derived from the template
// content unless an explicit version was supplied. Saving an explicit
// version that already exists overwrites that history entry (last write
// wins, matching the repository's file semantics).
func (s *PromptService) Save(params SavePromptParams) (string, error) {
	if params.Name == "" {
		return "", fmt.Errorf("prompt name is required")
	}
	if params.Template == "" {
		return "", fmt.Errorf("prompt template is required")
	}

	version := params.Version
	if version == "" {
		version = ContentVersion(params.Template)
	}
	now := time.Now()

	lock := s.nameLock(params.Name)
	lock.Lock()
	defer lock.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		current := models.PromptTemplate{
			Name:        params.Name,
			Version:     version,
			Template:    params.Template,
			Description: params.Description,
			Metadata:    params.Metadata,
			CreatedAt:   now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"version", "template", "description", "metadata", "created_at"}),
		}).Create(&current).Error; err != nil {
			return fmt.Errorf("write current prompt: %w", err)
		}

		history := models.PromptVersion{
			Name:        params.Name,
			Version:     version,
			Template:    params.Template,
			Description: params.Description,
			Metadata:    params.Metadata,
			CreatedAt:   now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}, {Name: "version"}},
			DoUpdates: clause.AssignmentColumns([]string{"template", "description", "metadata", "created_at"}),
		}).Create(&history).Error; err != nil {
			return fmt.Errorf("append prompt history: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return version, nil
}

// Get returns the current record for name, or the exact history entry when a
// version is given. ErrPromptNotFound is returned when absent.
func (s *PromptService) Get(name, version string) (*models.PromptTemplate, error) {
	if version == "" {
		var current models.PromptTemplate
		err := s.db.Where("name = ?", name).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromptNotFound
		}
		if err != nil {
			return nil, err
		}
		return &current, nil
	}

	var entry models.PromptVersion
	err := s.db.Where("name = ? AND version = ?", name, version).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPromptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &models.PromptTemplate{
		Name:        entry.Name,
		Version:     entry.Version,
		Template:    entry.Template,
		Description: entry.Description,
		Metadata:    entry.Metadata,
		CreatedAt:   entry.CreatedAt,
	}, nil
}

// VersionInfo summarizes one history entry.
type VersionInfo struct {
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description"`
}

// ListVersions returns all history entries for a name, newest first.
func (s *PromptService) ListVersions(name string) ([]VersionInfo, error) {
	var versions []VersionInfo
	err := s.db.Model(&models.PromptVersion{}).
		Select("version, created_at, description").
		Where("name = ?", name).
		Order("created_at DESC").
		Scan(&versions).Error
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []VersionInfo{}
	}
	return versions, nil
}

// PromptSummary describes the current record of one known prompt name.
type PromptSummary struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListAll returns one current-record summary per known name.
func (s *PromptService) ListAll() ([]PromptSummary, error) {
	var summaries []PromptSummary
	err := s.db.Model(&models.PromptTemplate{}).
		Select("name, version, description, created_at").
		Order("name ASC").
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []PromptSummary{}
	}
	return summaries, nil
}

const customerSupportTemplate = `
You are a helpful customer support assistant for Acme Inc.
Your goal is to provide clear, concise, and accurate information to help customers with their inquiries.

CONTEXT INFORMATION:
{{context}}

USER QUESTION:
{{question}}

Provide a friendly and helpful response based on the context information.
If you don't know the answer based on the context, say so politely and suggest the customer contact support for more help.
`

const evaluatorTemplate = `
You are a strict evaluator of assistant responses. Task: {{task}}.

CONTEXT:
{{context}}

RESPONSE TO EVALUATE:
{{response}}

Judge whether the response is supported by the context. Reply with a JSON
object only: {"score": <0.0-1.0>, "explanation": "<one sentence>"}.
`

// SeedDefaults creates the built-in prompt templates if they do not exist.
func (s *PromptService) SeedDefaults() error {
	defaults := []SavePromptParams{
		{
			Name:        "customer_support",
			Template:    customerSupportTemplate,
			Description: "Customer support assistant prompt",
			Metadata:    `{"category": "support", "model": "gpt-3.5-turbo"}`,
		},
		{
			Name:        "evaluator",
			Template:    evaluatorTemplate,
			Description: "Factuality evaluator prompt",
			Metadata:    `{"category": "evaluation"}`,
		},
	}

	for _, params := range defaults {
		var count int64
		if err := s.db.Model(&models.PromptTemplate{}).Where("name = ?", params.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if _, err := s.Save(params); err != nil {
			return err
		}
	}
	return nil
}
