package model

// Option labels follow the rendered keyboard: A, B, C, D.
var OptionLabels = []string{"A", "B", "C", "D"}

type Question struct {
	BaseModel
	Level        Level  `gorm:"size:32;index;not null" json:"level"`
	Text         string `gorm:"type:text;not null" json:"text"`
	OptionA      string `gorm:"type:text" json:"optionA"`
	OptionB      string `gorm:"type:text" json:"optionB"`
	OptionC      string `gorm:"type:text" json:"optionC"`
	OptionD      string `gorm:"type:text" json:"optionD"`
	CorrectLabel string `gorm:"size:1;not null" json:"correctLabel"`
	Explanation  string `gorm:"type:text" json:"explanation"`
	Difficulty   int    `gorm:"default:1" json:"difficulty"`
	IsActive     bool   `gorm:"default:true" json:"isActive"`
	CreatedBy    string `gorm:"size:64;default:'system'" json:"createdBy"`
}

func (Question) TableName() string {
	return "questions"
}

type Option struct {
	Label string
	Text  string
}

// Options returns the present options in label order; absent slots are
// skipped so a two-option question renders two buttons.
func (q *Question) Options() []Option {
	texts := []string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
	opts := make([]Option, 0, len(texts))
	for i, text := range texts {
		if text == "" {
			continue
		}
		opts = append(opts, Option{Label: OptionLabels[i], Text: text})
	}
	return opts
}

func (q *Question) HasLabel(label string) bool {
	for _, opt := range q.Options() {
		if opt.Label == label {
			return true
		}
	}
	return false
}
