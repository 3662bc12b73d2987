package repository

import (
	"english_test_bot/internal/model"

	"gorm.io/gorm"
)

type BroadcastRepository struct {
	DB *gorm.DB
}

func NewBroadcastRepository(db *gorm.DB) *BroadcastRepository {
	return &BroadcastRepository{DB: db}
}

func (r *BroadcastRepository) Create(b *model.Broadcast) error {
	return r.DB.Create(b).Error
}

func (r *BroadcastRepository) Finish(id uint, sentTo int, status model.BroadcastStatus) error {
	return r.DB.Model(&model.Broadcast{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sent_to": sentTo,
			"status":  status,
		}).Error
}
