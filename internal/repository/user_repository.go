package repository

import (
	"english_test_bot/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// Upsert creates the user on first contact and refreshes identity fields
// plus last_active on every later one.
func (r *UserRepository) Upsert(telegramID int64, username, firstName, lastName string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("telegram_id = ?", telegramID).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		user = model.User{
			TelegramID: telegramID,
			Username:   username,
			FirstName:  firstName,
			LastName:   lastName,
			IsActive:   true,
			LastActive: time.Now(),
		}
		if err := r.DB.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	user.Username = username
	user.FirstName = firstName
	user.LastName = lastName
	user.LastActive = time.Now()
	if err := r.DB.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByTelegramID(telegramID int64) (*model.User, error) {
	var user model.User
	err := r.DB.Where("telegram_id = ?", telegramID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ActiveTelegramIDs lists delivery targets for a broadcast.
func (r *UserRepository) ActiveTelegramIDs() ([]int64, error) {
	var ids []int64
	err := r.DB.Model(&model.User{}).
		Where("is_active = ?", true).
		Pluck("telegram_id", &ids).Error
	return ids, err
}

func (r *UserRepository) CountActive() (int64, error) {
	var count int64
	err := r.DB.Model(&model.User{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

func (r *UserRepository) CountActiveSince(since time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&model.User{}).Where("last_active > ?", since).Count(&count).Error
	return count, err
}

func (r *UserRepository) CountTested() (int64, error) {
	var count int64
	err := r.DB.Model(&model.User{}).Where("total_tests > 0").Count(&count).Error
	return count, err
}

func (r *UserRepository) CountJoinedSince(since time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&model.User{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}
