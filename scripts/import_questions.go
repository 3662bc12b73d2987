// Bulk question import script.
//
// Reads a plain-text file of question blocks separated by blank lines,
// each block in the same format the admin panel accepts, and inserts
// them for the given level. Meant for first deployment or for loading a
// prepared question bank.
//
// Usage: go run scripts/import_questions.go <level> <file>

package main

import (
	"english_test_bot/internal/config"
	"english_test_bot/internal/model"
	"english_test_bot/internal/repository"
	"english_test_bot/internal/service"
	"english_test_bot/pkg/database"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) != 3 {
		log.Fatalf("Usage: go run scripts/import_questions.go <level> <file>")
	}

	level := model.Level(os.Args[1])
	if !level.Valid() {
		log.Fatalf("Unknown level %q", os.Args[1])
	}

	// The raw yaml is read directly so the script works without the
	// bot token the main application requires.
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to read config: %v", err)
	}
	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	raw, err := os.ReadFile(os.Args[2])
	if err != nil {
		log.Fatalf("Failed to read question file: %v", err)
	}

	questions := repository.NewQuestionRepository(db)
	imported, skipped := 0, 0
	for _, block := range strings.Split(string(raw), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		form, err := service.ParseQuestionText(level, block)
		if err != nil {
			log.Printf("Skipping malformed block: %v", err)
			skipped++
			continue
		}
		if err := questions.Create(form.Question("import")); err != nil {
			log.Fatalf("Failed to insert question: %v", err)
		}
		imported++
	}

	log.Printf("Done: %d imported, %d skipped", imported, skipped)
}
