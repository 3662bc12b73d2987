package model

type BroadcastStatus string

const (
	BroadcastPending   BroadcastStatus = "pending"
	BroadcastCompleted BroadcastStatus = "completed"
	BroadcastFailed    BroadcastStatus = "failed"
)

type Broadcast struct {
	BaseModel
	AdminID     int64           `gorm:"index" json:"adminId"`
	MessageText string          `gorm:"type:text" json:"messageText"`
	SentTo      int             `gorm:"default:0" json:"sentTo"`
	TotalUsers  int             `gorm:"default:0" json:"totalUsers"`
	Status      BroadcastStatus `gorm:"size:16;default:'pending'" json:"status"`
}

func (Broadcast) TableName() string {
	return "broadcasts"
}
