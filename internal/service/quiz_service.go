package service

import (
	"encoding/json"
	"english_test_bot/internal/config"
	"english_test_bot/internal/model"
	"english_test_bot/internal/util"
	"math/rand"
	"sync"
	"time"
)

// Identity is the transport-supplied view of the acting user.
type Identity struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// QuestionSource is the slice of the question store the engine needs.
type QuestionSource interface {
	CountActive(level model.Level) (int64, error)
	FindActiveByLevel(level model.Level) ([]model.Question, error)
}

// ResultSink persists a completed report together with the profile
// aggregate update.
type ResultSink interface {
	Record(telegramID int64, username, firstName, lastName string, result *model.TestResult) (uint, error)
}

// AnswerOutcome is what one submit/skip produced.
type AnswerOutcome struct {
	Record    model.AnswerRecord
	NextIndex int
	Done      bool
}

// QuizService drives one user through a test: it owns question
// selection, scoring and the final report.
type QuizService struct {
	sessions  SessionStore
	questions QuestionSource
	results   ResultSink

	mu  sync.RWMutex
	cfg config.QuizConfig
}

func NewQuizService(sessions SessionStore, questions QuestionSource, results ResultSink, cfg config.QuizConfig) *QuizService {
	return &QuizService{
		sessions:  sessions,
		questions: questions,
		results:   results,
		cfg:       cfg,
	}
}

// UpdateConfig swaps the quiz settings, used by the config hot reload.
// Running sessions keep their snapshot.
func (s *QuizService) UpdateConfig(cfg config.QuizConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *QuizService) target(level model.Level) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.cfg.Targets[string(level)]; ok && t > 0 {
		return t
	}
	return s.cfg.DefaultTarget
}

func (s *QuizService) minQuestions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.MinQuestions
}

func (s *QuizService) IdleTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.IdleTimeout
}

// Start opens a session of min(available, target) distinct questions for
// the level, discarding any prior session for the user.
func (s *QuizService) Start(user Identity, level model.Level) (*model.QuizSession, error) {
	count, err := s.questions.CountActive(level)
	if err != nil {
		return nil, err
	}
	if count < int64(s.minQuestions()) {
		return nil, util.ErrInsufficientQuestions
	}

	stock, err := s.questions.FindActiveByLevel(level)
	if err != nil {
		return nil, err
	}
	if len(stock) < s.minQuestions() {
		// The stock shrank between the count and the fetch.
		return nil, util.ErrInsufficientQuestions
	}

	selected := sampleQuestions(stock, s.target(level))

	now := time.Now()
	session := &model.QuizSession{
		UserID:      user.TelegramID,
		Level:       level,
		Questions:   selected,
		StartedAt:   now,
		LastTouched: now,
	}
	s.sessions.Put(session)
	return session, nil
}

// sampleQuestions returns up to limit questions drawn without
// replacement, Fisher-Yates shuffled so every subset is equally likely.
func sampleQuestions(stock []model.Question, limit int) []model.Question {
	shuffled := make([]model.Question, len(stock))
	copy(shuffled, stock)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if limit <= 0 || limit > len(shuffled) {
		limit = len(shuffled)
	}
	return shuffled[:limit]
}

// Session exposes the live session, when any.
func (s *QuizService) Session(userID int64) (*model.QuizSession, bool) {
	return s.sessions.Get(userID)
}

// LevelCounts reports the active question stock per level, used by the
// level selection screen.
func (s *QuizService) LevelCounts() (map[model.Level]int64, error) {
	counts := make(map[model.Level]int64, len(model.AllLevels))
	for _, level := range model.AllLevels {
		n, err := s.questions.CountActive(level)
		if err != nil {
			return nil, err
		}
		counts[level] = n
	}
	return counts, nil
}

// CurrentQuestion returns the question at the session's index along with
// the index and total. A session with no questions left yields
// ErrSessionComplete; the caller should move on to Finish.
func (s *QuizService) CurrentQuestion(userID int64) (*model.Question, int, int, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return nil, 0, 0, util.ErrNoActiveSession
	}
	if session.Complete() {
		return nil, session.CurrentIndex, session.Total(), util.ErrSessionComplete
	}
	q := session.Questions[session.CurrentIndex]
	return &q, session.CurrentIndex, session.Total(), nil
}

// SubmitAnswer scores the answer for the question at questionIndex and
// advances the session. The index comes from the rendered screen, so a
// double tap on an already-answered question is rejected as stale
// instead of consuming the next question.
func (s *QuizService) SubmitAnswer(userID int64, questionIndex int, label string) (*AnswerOutcome, error) {
	return s.advance(userID, questionIndex, label)
}

// Skip advances past the current question without credit.
func (s *QuizService) Skip(userID int64, questionIndex int) (*AnswerOutcome, error) {
	return s.advance(userID, questionIndex, model.SkipLabel)
}

func (s *QuizService) advance(userID int64, questionIndex int, label string) (*AnswerOutcome, error) {
	var outcome AnswerOutcome
	err := s.sessions.CompareAndAdvance(userID, questionIndex, func(session *model.QuizSession) error {
		question := session.Questions[questionIndex]

		if label != model.SkipLabel && !question.HasLabel(label) {
			return util.ErrInvalidAnswerLabel
		}

		record := model.AnswerRecord{
			QuestionID:   question.ID,
			QuestionText: question.Text,
			Answer:       label,
			CorrectLabel: question.CorrectLabel,
			IsCorrect:    label != model.SkipLabel && label == question.CorrectLabel,
			Explanation:  question.Explanation,
		}
		session.Answers = append(session.Answers, record)
		if record.IsCorrect {
			session.Score++
		}

		outcome.Record = record
		outcome.NextIndex = questionIndex + 1
		outcome.Done = questionIndex+1 >= session.Total()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

// Cancel discards the session without persisting anything.
func (s *QuizService) Cancel(userID int64) error {
	if _, ok := s.sessions.Get(userID); !ok {
		return util.ErrNoActiveSession
	}
	s.sessions.Remove(userID)
	return nil
}

// Finish computes the report for a completed session, persists it and
// the profile aggregates, and removes the session. Calling it with
// questions still open is an error and persists nothing.
func (s *QuizService) Finish(user Identity) (*model.Report, error) {
	session, ok := s.sessions.Get(user.TelegramID)
	if !ok {
		return nil, util.ErrNoActiveSession
	}
	if !session.Complete() {
		return nil, util.ErrSessionNotComplete
	}

	report := BuildReport(session)

	details, err := json.Marshal(session.Answers)
	if err != nil {
		return nil, err
	}

	result := &model.TestResult{
		Level:          report.Level,
		Score:          report.Score,
		TotalQuestions: report.TotalQuestions,
		CorrectAnswers: report.CorrectAnswers,
		WrongAnswers:   report.WrongAnswers,
		Percentage:     report.Percentage,
		Details:        string(details),
	}

	resultID, err := s.results.Record(user.TelegramID, user.Username, user.FirstName, user.LastName, result)
	if err != nil {
		return nil, err
	}
	report.ResultID = resultID

	s.sessions.Remove(user.TelegramID)
	return report, nil
}

// SweepIdle reclaims abandoned sessions; the caller reports them.
func (s *QuizService) SweepIdle() []*model.QuizSession {
	return s.sessions.SweepIdle(s.IdleTimeout())
}

// BuildReport folds the answer log into the final counts. Skips count
// against the wrong-answer total; the per-question log keeps them apart.
func BuildReport(session *model.QuizSession) *model.Report {
	total := session.Total()
	correct := session.Score
	skipped := 0
	for _, a := range session.Answers {
		if a.Skipped() {
			skipped++
		}
	}

	percentage := 0.0
	if total > 0 {
		percentage = float64(correct) / float64(total) * 100
	}

	return &model.Report{
		Level:          session.Level,
		Score:          correct,
		TotalQuestions: total,
		CorrectAnswers: correct,
		WrongAnswers:   total - correct,
		SkippedAnswers: skipped,
		Percentage:     percentage,
		Duration:       time.Since(session.StartedAt),
		Answers:        session.Answers,
	}
}
