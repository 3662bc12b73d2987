package repository

import (
	"english_test_bot/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.First(&q, id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) CountActive(level model.Level) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).
		Where("level = ? AND is_active = ?", level, true).
		Count(&count).Error
	return count, err
}

// FindActiveByLevel returns the full active stock for a level; the quiz
// engine samples from it so the randomness stays driver-independent.
func (r *QuestionRepository) FindActiveByLevel(level model.Level) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Where("level = ? AND is_active = ?", level, true).
		Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) ListByLevel(level model.Level, limit int) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Where("level = ? AND is_active = ?", level, true).
		Order("id").
		Limit(limit).
		Find(&questions).Error
	return questions, err
}

// Deactivate retires a question; questions are never deleted.
func (r *QuestionRepository) Deactivate(id uint) error {
	return r.DB.Model(&model.Question{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *QuestionRepository) CountAll() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Count(&count).Error
	return count, err
}

func (r *QuestionRepository) CountInactive() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Where("is_active = ?", false).Count(&count).Error
	return count, err
}

func (r *QuestionRepository) CountsByLevel() (map[model.Level]int64, error) {
	counts := make(map[model.Level]int64, len(model.AllLevels))
	for _, level := range model.AllLevels {
		n, err := r.CountActive(level)
		if err != nil {
			return nil, err
		}
		counts[level] = n
	}
	return counts, nil
}
