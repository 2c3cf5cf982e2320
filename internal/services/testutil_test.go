package services

import (
	"fmt"
	"testing"

	"github.com/acme/supportlens/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory sqlite database for one test. The
// shared cache keeps the database alive across the pool's connections.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.PromptTemplate{},
		&models.PromptVersion{},
		&models.Interaction{},
		&models.Feedback{},
		&models.Flag{},
		&models.CostRecord{},
	)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// recordTestInteraction appends a minimal interaction and returns its id.
func recordTestInteraction(t *testing.T, ledger *LedgerService) uint {
	t.Helper()

	id, err := ledger.RecordInteraction(RecordInteractionParams{
		SessionID:     "test-session",
		PromptName:    "customer_support",
		PromptVersion: "abcd1234",
		PromptText:    "prompt",
		ResponseText:  "response",
		TokensInput:   10,
		TokensOutput:  20,
		LatencyMs:     150,
		Model:         "gpt-3.5-turbo",
		Temperature:   0.7,
		Metadata:      "{}",
	})
	if err != nil {
		t.Fatalf("record interaction: %v", err)
	}
	return id
}
