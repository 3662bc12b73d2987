package repository

import (
	"english_test_bot/internal/model"
	"time"

	"gorm.io/gorm"
)

type ResultRepository struct {
	DB *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{DB: db}
}

// UserStats is the aggregate line of the results screen.
type UserStats struct {
	Count         int64
	AvgPercentage float64
	MaxScore      int
}

// Record persists a completed test and updates the owner's running
// totals inside one transaction: either both land or neither does. The
// user row is created on first use. The current level is advanced only
// for native sessions; offline submissions carry no trusted level.
func (r *ResultRepository) Record(telegramID int64, username, firstName, lastName string, result *model.TestResult) (uint, error) {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var user model.User
		err := tx.Where("telegram_id = ?", telegramID).First(&user).Error
		if err == gorm.ErrRecordNotFound {
			user = model.User{
				TelegramID: telegramID,
				Username:   username,
				FirstName:  firstName,
				LastName:   lastName,
				IsActive:   true,
				LastActive: time.Now(),
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		result.UserID = user.ID
		if err := tx.Create(result).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"total_tests": gorm.Expr("total_tests + 1"),
			"best_score":  user.BestScore,
			"last_active": time.Now(),
		}
		if result.Score > user.BestScore {
			updates["best_score"] = result.Score
		}
		if !result.IsOffline {
			updates["current_level"] = result.Level
		}
		return tx.Model(&model.User{}).
			Where("id = ?", user.ID).
			Updates(updates).Error
	})
	if err != nil {
		return 0, err
	}
	return result.ID, nil
}

func (r *ResultRepository) Recent(userID uint, limit int) ([]model.TestResult, error) {
	var results []model.TestResult
	err := r.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error
	return results, err
}

func (r *ResultRepository) Aggregate(userID uint) (*UserStats, error) {
	var stats UserStats
	row := r.DB.Model(&model.TestResult{}).
		Select("COUNT(*), COALESCE(AVG(percentage), 0), COALESCE(MAX(score), 0)").
		Where("user_id = ?", userID).
		Row()
	if err := row.Scan(&stats.Count, &stats.AvgPercentage, &stats.MaxScore); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *ResultRepository) CountAll() (int64, error) {
	var count int64
	err := r.DB.Model(&model.TestResult{}).Count(&count).Error
	return count, err
}

func (r *ResultRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&model.TestResult{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

func (r *ResultRepository) AvgPercentage() (float64, error) {
	var avg float64
	err := r.DB.Model(&model.TestResult{}).
		Select("COALESCE(AVG(percentage), 0)").
		Scan(&avg).Error
	return avg, err
}

func (r *ResultRepository) MaxScore() (int, error) {
	var max int
	err := r.DB.Model(&model.TestResult{}).
		Select("COALESCE(MAX(score), 0)").
		Scan(&max).Error
	return max, err
}

func (r *ResultRepository) MinPositiveScore() (int, error) {
	var min int
	err := r.DB.Model(&model.TestResult{}).
		Where("score > 0").
		Select("COALESCE(MIN(score), 0)").
		Scan(&min).Error
	return min, err
}
