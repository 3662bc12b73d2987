package repository

import (
	"english_test_bot/internal/model"
	"time"

	"gorm.io/gorm"
)

type AdminSessionRepository struct {
	DB *gorm.DB
}

func NewAdminSessionRepository(db *gorm.DB) *AdminSessionRepository {
	return &AdminSessionRepository{DB: db}
}

func (r *AdminSessionRepository) Create(sess *model.AdminSession) error {
	return r.DB.Create(sess).Error
}

func (r *AdminSessionRepository) FindByID(id string) (*model.AdminSession, error) {
	var sess model.AdminSession
	err := r.DB.Where("id = ?", id).First(&sess).Error
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Activate marks a login session as completed after both factors passed.
func (r *AdminSessionRepository) Activate(id string) error {
	return r.DB.Model(&model.AdminSession{}).
		Where("id = ?", id).
		Update("is_active", true).Error
}

func (r *AdminSessionRepository) Deactivate(id string) error {
	return r.DB.Model(&model.AdminSession{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

// PurgeExpired drops login sessions whose code expired without a
// completed login.
func (r *AdminSessionRepository) PurgeExpired() error {
	return r.DB.Where("is_active = ? AND expires_at < ?", false, time.Now()).
		Delete(&model.AdminSession{}).Error
}
