package model

import "time"

type User struct {
	BaseModel
	TelegramID   int64     `gorm:"uniqueIndex;not null" json:"telegramId"`
	Username     string    `gorm:"size:100" json:"username"`
	FirstName    string    `gorm:"size:100" json:"firstName"`
	LastName     string    `gorm:"size:100" json:"lastName"`
	PhoneNumber  string    `gorm:"size:32" json:"phoneNumber"`
	TotalTests   int       `gorm:"default:0" json:"totalTests"`
	BestScore    int       `gorm:"default:0" json:"bestScore"`
	CurrentLevel Level     `gorm:"size:32;default:'beginner'" json:"currentLevel"`
	IsActive     bool      `gorm:"default:true" json:"isActive"`
	LastActive   time.Time `json:"lastActive"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) DisplayName() string {
	if u.FirstName != "" {
		if u.LastName != "" {
			return u.FirstName + " " + u.LastName
		}
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "User"
}
