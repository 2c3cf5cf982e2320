package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/acme/supportlens/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Maintenance script: prints every prompt's current record and history from
// the configured database. With --export <dir>, also writes each history
// entry's template body to <dir>/<name>_<version>.txt for offline review.
//
// Run: go run scripts/dump_prompts.go [--export <dir>]

type PromptTemplate struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"size:100"`
	Version  string `gorm:"size:64"`
	Template string `gorm:"type:text"`
}

func (PromptTemplate) TableName() string { return "prompt_templates" }

type PromptVersion struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"size:100"`
	Version  string `gorm:"size:64"`
	Template string `gorm:"type:text"`
}

func (PromptVersion) TableName() string { return "prompt_versions" }

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}

	var current []PromptTemplate
	if err := db.Order("name").Find(&current).Error; err != nil {
		fmt.Printf("Failed to read prompts: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d prompts:\n\n", len(current))
	for _, p := range current {
		var history []PromptVersion
		if err := db.Where("name = ?", p.Name).Order("id").Find(&history).Error; err != nil {
			fmt.Printf("Failed to read history for %s: %v\n", p.Name, err)
			os.Exit(1)
		}

		fmt.Printf("=== %s (current: %s, %d versions) ===\n", p.Name, p.Version, len(history))
		fmt.Printf("%s\n", p.Template)
		fmt.Println(strings.Repeat("-", 80))
	}

	if len(os.Args) > 2 && os.Args[1] == "--export" {
		exportDir := os.Args[2]
		if err := os.MkdirAll(exportDir, 0755); err != nil {
			fmt.Printf("Failed to create export dir: %v\n", err)
			os.Exit(1)
		}

		var history []PromptVersion
		if err := db.Order("name, id").Find(&history).Error; err != nil {
			fmt.Printf("Failed to read history: %v\n", err)
			os.Exit(1)
		}

		for _, v := range history {
			path := filepath.Join(exportDir, fmt.Sprintf("%s_%s.txt", v.Name, v.Version))
			if err := os.WriteFile(path, []byte(v.Template), 0644); err != nil {
				fmt.Printf("Failed to write %s: %v\n", path, err)
				os.Exit(1)
			}
			fmt.Printf("Exported %s\n", path)
		}
	} else {
		fmt.Println("\nTo export template bodies, run: go run scripts/dump_prompts.go --export <dir>")
	}
}
