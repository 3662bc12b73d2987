package model

import "time"

// SkipLabel is the sentinel chosen-label for a skipped question.
const SkipLabel = "SKIP"

// AnswerRecord is one entry of a session's append-only answer log. It
// snapshots the correct label and explanation so later question edits do
// not rewrite history.
type AnswerRecord struct {
	QuestionID   uint   `json:"question_id"`
	QuestionText string `json:"question_text"`
	Answer       string `json:"answer"`
	CorrectLabel string `json:"correct_answer"`
	IsCorrect    bool   `json:"is_correct"`
	Explanation  string `json:"explanation"`
}

func (a AnswerRecord) Skipped() bool {
	return a.Answer == SkipLabel
}

// QuizSession is the ephemeral per-user state of a test in progress.
// Questions is a snapshot taken at start; re-querying the question store
// afterwards does not perturb it.
type QuizSession struct {
	UserID       int64
	Level        Level
	Questions    []Question
	CurrentIndex int
	Score        int
	Answers      []AnswerRecord
	StartedAt    time.Time
	LastTouched  time.Time
}

func (s *QuizSession) Total() int {
	return len(s.Questions)
}

func (s *QuizSession) Complete() bool {
	return s.CurrentIndex >= len(s.Questions)
}

// Report is the computed outcome of a completed session.
type Report struct {
	ResultID       uint
	Level          Level
	Score          int
	TotalQuestions int
	CorrectAnswers int
	WrongAnswers   int
	SkippedAnswers int
	Percentage     float64
	Duration       time.Duration
	Answers        []AnswerRecord
}
