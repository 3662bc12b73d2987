package model

import "time"

// AdminSession is the persisted trail of an admin login: the one-time
// code issued on /admin and whether the login was completed.
type AdminSession struct {
	UUIDBase
	AdminID   int64     `gorm:"index;not null" json:"adminId"`
	LoginCode string    `gorm:"size:12;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsActive  bool      `gorm:"default:false" json:"isActive"`
}

func (AdminSession) TableName() string {
	return "admin_sessions"
}
