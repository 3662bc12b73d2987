package service

import (
	"encoding/json"
	"english_test_bot/internal/model"
	"english_test_bot/internal/util"
	"strings"
)

// ResultMarker prefixes out-of-band result submissions from the
// companion web client.
const ResultMarker = "RESULT:"

// OfflineReport mirrors the companion client's payload. Absent numeric
// fields stay zero and an absent level becomes "unknown"; a submission
// is never rejected for missing fields, only for broken JSON.
type OfflineReport struct {
	Level          string          `json:"level"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"total_questions"`
	CorrectAnswers int             `json:"correct_answers"`
	WrongAnswers   int             `json:"wrong_answers"`
	Percentage     float64         `json:"percentage"`
	Details        json.RawMessage `json:"details"`
}

func IsOfflineReport(text string) bool {
	return strings.HasPrefix(text, ResultMarker)
}

func ParseOfflineReport(text string) (*OfflineReport, error) {
	if !IsOfflineReport(text) {
		return nil, util.ErrInvalidQuestionFormat
	}
	payload := strings.TrimPrefix(text, ResultMarker)

	var report OfflineReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, err
	}
	if report.Level == "" {
		report.Level = "unknown"
	}
	return &report, nil
}

// Result projects the offline payload onto the persisted row shape.
func (r *OfflineReport) Result() *model.TestResult {
	details := "{}"
	if len(r.Details) > 0 {
		details = string(r.Details)
	}
	return &model.TestResult{
		Level:          model.Level(r.Level),
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		CorrectAnswers: r.CorrectAnswers,
		WrongAnswers:   r.WrongAnswers,
		Percentage:     r.Percentage,
		IsOffline:      true,
		Details:        details,
	}
}
