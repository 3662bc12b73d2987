package database

import (
	"english_test_bot/internal/config"
	"english_test_bot/internal/model"
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
		)
		dialector = mysql.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Question{},
		&model.TestResult{},
		&model.AdminSession{},
		&model.Broadcast{},
	)
}

// SeedQuestions fills an empty question bank with a starter set so a
// fresh install can run a beginner test immediately.
func SeedQuestions(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Question{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seed := []model.Question{
		{
			Level:        model.Beginner,
			Text:         "What ___ your name?",
			OptionA:      "is",
			OptionB:      "am",
			OptionC:      "are",
			OptionD:      "be",
			CorrectLabel: "A",
			Explanation:  "What is your name? - Ismingiz nima?",
			Difficulty:   1,
		},
		{
			Level:        model.Beginner,
			Text:         "I ___ from Uzbekistan.",
			OptionA:      "am",
			OptionB:      "is",
			OptionC:      "are",
			OptionD:      "be",
			CorrectLabel: "A",
			Explanation:  "I am from Uzbekistan. - Men O'zbekistondanman.",
			Difficulty:   1,
		},
		{
			Level:        model.Beginner,
			Text:         "She ___ a teacher.",
			OptionA:      "am",
			OptionB:      "is",
			OptionC:      "are",
			OptionD:      "be",
			CorrectLabel: "B",
			Explanation:  "She is a teacher. - U o'qituvchi.",
			Difficulty:   1,
		},
		{
			Level:        model.Beginner,
			Text:         "They ___ students.",
			OptionA:      "am",
			OptionB:      "is",
			OptionC:      "are",
			OptionD:      "be",
			CorrectLabel: "C",
			Explanation:  "They are students. - Ular talabalar.",
			Difficulty:   1,
		},
		{
			Level:        model.Beginner,
			Text:         "My name ___ John.",
			OptionA:      "am",
			OptionB:      "is",
			OptionC:      "are",
			OptionD:      "be",
			CorrectLabel: "B",
			Explanation:  "My name is John. - Mening ismim John.",
			Difficulty:   1,
		},
		{
			Level:        model.Elementary,
			Text:         "She usually ___ to work by bus.",
			OptionA:      "go",
			OptionB:      "goes",
			OptionC:      "going",
			OptionD:      "went",
			CorrectLabel: "B",
			Explanation:  "Present Simple: She goes to work by bus.",
			Difficulty:   2,
		},
		{
			Level:        model.Elementary,
			Text:         "I ___ TV every evening.",
			OptionA:      "watch",
			OptionB:      "watches",
			OptionC:      "watching",
			OptionD:      "watched",
			CorrectLabel: "A",
			Explanation:  "Present Simple: I watch TV every evening.",
			Difficulty:   2,
		},
	}

	for i := range seed {
		seed[i].IsActive = true
		seed[i].CreatedBy = "system"
		if err := db.Create(&seed[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
