package model

type TestResult struct {
	BaseModel
	UserID         uint    `gorm:"index;not null" json:"userId"`
	User           *User   `gorm:"foreignKey:UserID" json:"-"`
	Level          Level   `gorm:"size:32" json:"level"`
	Score          int     `json:"score"`
	TotalQuestions int     `json:"totalQuestions"`
	CorrectAnswers int     `json:"correctAnswers"`
	WrongAnswers   int     `json:"wrongAnswers"`
	Percentage     float64 `json:"percentage"`
	IsOffline      bool    `gorm:"default:false" json:"isOffline"`
	// Serialized answer log, kept verbatim for the detail screen.
	Details     string `gorm:"type:text" json:"details"`
	IsReviewed  bool   `gorm:"default:false" json:"isReviewed"`
	ReviewNotes string `gorm:"type:text" json:"reviewNotes"`
}

func (TestResult) TableName() string {
	return "test_results"
}
