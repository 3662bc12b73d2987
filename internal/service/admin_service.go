package service

import (
	"crypto/rand"
	"encoding/hex"
	"english_test_bot/internal/config"
	"english_test_bot/internal/model"
	"english_test_bot/internal/repository"
	"english_test_bot/internal/util"
	"english_test_bot/pkg/security"
	"fmt"
	"strings"
	"sync"
	"time"
)

// AdminState is the gate's per-admin position.
type AdminState int

const (
	StateLoggedOut AdminState = iota
	StateAwaitingPassword
	StateMainMenu
	StateAddingQuestion
	StateBroadcasting
)

// adminSession is the in-memory side of one admin's gate state; the
// issued login code and completion flag are also persisted.
type adminSession struct {
	state       AdminState
	sessionID   string
	loginCode   string
	token       string
	addingLevel model.Level
}

// AdminService runs the admin gate: two-factor login (shared password
// plus the one-time code issued on /admin), a JWT session token checked
// on every authenticated action, question curation and panel stats.
type AdminService struct {
	mu   sync.Mutex
	cfg  config.AdminConfig
	live map[int64]*adminSession

	sessions  *repository.AdminSessionRepository
	questions *repository.QuestionRepository
	users     *repository.UserRepository
	results   *repository.ResultRepository
}

func NewAdminService(
	sessions *repository.AdminSessionRepository,
	questions *repository.QuestionRepository,
	users *repository.UserRepository,
	results *repository.ResultRepository,
	cfg config.AdminConfig,
) *AdminService {
	return &AdminService{
		cfg:       cfg,
		live:      make(map[int64]*adminSession),
		sessions:  sessions,
		questions: questions,
		users:     users,
		results:   results,
	}
}

func (s *AdminService) UpdateConfig(cfg config.AdminConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *AdminService) IsAdmin(telegramID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.cfg.IDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func (s *AdminService) State(telegramID int64) AdminState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.live[telegramID]; ok {
		return sess.state
	}
	return StateLoggedOut
}

// BeginLogin issues a fresh one-time code with a fixed expiry and moves
// the admin to AwaitingPassword. Any earlier gate state is discarded.
func (s *AdminService) BeginLogin(adminID int64) (string, error) {
	if !s.IsAdmin(adminID) {
		return "", util.ErrNotAuthorized
	}

	code, err := newLoginCode()
	if err != nil {
		return "", err
	}

	row := &model.AdminSession{
		AdminID:   adminID,
		LoginCode: code,
		ExpiresAt: time.Now().Add(s.loginExpiry()),
	}
	if err := s.sessions.Create(row); err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrPersistenceFailure, err)
	}

	s.mu.Lock()
	s.live[adminID] = &adminSession{
		state:     StateAwaitingPassword,
		sessionID: row.ID,
		loginCode: code,
	}
	s.mu.Unlock()

	return code, nil
}

// CompleteLogin verifies "<password> <code>" against the bcrypt hash and
// the open login session. Any mismatch or an expired code drops the gate
// back to LoggedOut; a fresh /admin is required afterwards.
func (s *AdminService) CompleteLogin(adminID int64, input string) error {
	s.mu.Lock()
	sess, ok := s.live[adminID]
	if !ok || sess.state != StateAwaitingPassword {
		s.mu.Unlock()
		return util.ErrNotAuthorized
	}
	sessionID := sess.sessionID
	expectedCode := sess.loginCode
	passwordHash := s.cfg.PasswordHash
	jwtSecret := s.cfg.JWTSecret
	expiry := s.cfg.LoginExpiry
	s.mu.Unlock()

	fail := func() error {
		s.mu.Lock()
		delete(s.live, adminID)
		s.mu.Unlock()
		return util.ErrAuthenticationFailed
	}

	fields := strings.Fields(input)
	if len(fields) != 2 {
		return fail()
	}
	password, code := fields[0], fields[1]

	if !security.CheckPassword(passwordHash, password) {
		return fail()
	}
	if !strings.EqualFold(code, expectedCode) {
		return fail()
	}

	row, err := s.sessions.FindByID(sessionID)
	if err != nil {
		return fail()
	}
	if time.Now().After(row.ExpiresAt) {
		return fail()
	}

	if err := s.sessions.Activate(sessionID); err != nil {
		return fmt.Errorf("%w: %v", util.ErrPersistenceFailure, err)
	}

	token, err := util.GenerateAdminToken(adminID, sessionID, jwtSecret, expiry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.live[adminID] = &adminSession{
		state:     StateMainMenu,
		sessionID: sessionID,
		token:     token,
	}
	s.mu.Unlock()
	return nil
}

// requireAuth checks both the in-memory state and the session token; an
// expired token logs the admin out.
func (s *AdminService) requireAuth(adminID int64) (*adminSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.live[adminID]
	if !ok || sess.state < StateMainMenu {
		return nil, util.ErrNotAuthorized
	}
	if _, err := util.ParseAdminToken(sess.token, s.cfg.JWTSecret); err != nil {
		delete(s.live, adminID)
		return nil, util.ErrNotAuthorized
	}
	return sess, nil
}

// Authorized reports whether the admin holds a live authenticated gate.
func (s *AdminService) Authorized(adminID int64) bool {
	_, err := s.requireAuth(adminID)
	return err == nil
}

func (s *AdminService) BeginAddQuestion(adminID int64, level model.Level) error {
	sess, err := s.requireAuth(adminID)
	if err != nil {
		return err
	}
	if !level.Valid() {
		return util.ErrInvalidQuestionFormat
	}
	s.mu.Lock()
	sess.state = StateAddingQuestion
	sess.addingLevel = level
	s.mu.Unlock()
	return nil
}

func (s *AdminService) AddingLevel(adminID int64) (model.Level, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.live[adminID]
	if !ok || sess.state != StateAddingQuestion {
		return "", false
	}
	return sess.addingLevel, true
}

// SubmitQuestionText parses and persists an admin-entered question. Both
// success and a format failure land back on the authenticated menu; a
// malformed submission never leaves a partial row behind.
func (s *AdminService) SubmitQuestionText(adminID int64, text string) (*model.Question, error) {
	sess, err := s.requireAuth(adminID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if sess.state != StateAddingQuestion {
		s.mu.Unlock()
		return nil, util.ErrNotAuthorized
	}
	level := sess.addingLevel
	sess.state = StateMainMenu
	sess.addingLevel = ""
	s.mu.Unlock()

	form, err := ParseQuestionText(level, text)
	if err != nil {
		return nil, util.ErrInvalidQuestionFormat
	}

	question := form.Question(fmt.Sprintf("admin_%d", adminID))
	if err := s.questions.Create(question); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPersistenceFailure, err)
	}
	return question, nil
}

// questionPageSize caps the list screen to what fits one message.
const questionPageSize = 10

// ListQuestions returns the oldest active questions of a level for the
// curation screen.
func (s *AdminService) ListQuestions(adminID int64, level model.Level) ([]model.Question, error) {
	if _, err := s.requireAuth(adminID); err != nil {
		return nil, err
	}
	if !level.Valid() {
		return nil, util.ErrInvalidQuestionFormat
	}
	return s.questions.ListByLevel(level, questionPageSize)
}

// DeactivateQuestion retires a question so it stops being served in
// tests; rows are never deleted. The retired question is returned so the
// caller can re-render its level's list.
func (s *AdminService) DeactivateQuestion(adminID int64, id uint) (*model.Question, error) {
	if _, err := s.requireAuth(adminID); err != nil {
		return nil, err
	}
	question, err := s.questions.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPersistenceFailure, err)
	}
	if err := s.questions.Deactivate(question.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPersistenceFailure, err)
	}
	question.IsActive = false
	return question, nil
}

func (s *AdminService) BeginBroadcast(adminID int64) error {
	sess, err := s.requireAuth(adminID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	sess.state = StateBroadcasting
	s.mu.Unlock()
	return nil
}

// Broadcasting reports whether the admin is composing a broadcast, and
// resets the state back to the menu when consume is set.
func (s *AdminService) Broadcasting(adminID int64, consume bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.live[adminID]
	if !ok || sess.state != StateBroadcasting {
		return false
	}
	if consume {
		sess.state = StateMainMenu
	}
	return true
}

func (s *AdminService) BackToMenu(adminID int64) error {
	sess, err := s.requireAuth(adminID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	sess.state = StateMainMenu
	sess.addingLevel = ""
	s.mu.Unlock()
	return nil
}

func (s *AdminService) Logout(adminID int64) {
	s.mu.Lock()
	sess, ok := s.live[adminID]
	delete(s.live, adminID)
	s.mu.Unlock()

	if ok && sess.sessionID != "" {
		// Best effort; the in-memory gate is already closed.
		s.sessions.Deactivate(sess.sessionID)
	}
}

// PurgeExpiredLogins drops stale login rows; run periodically.
func (s *AdminService) PurgeExpiredLogins() error {
	return s.sessions.PurgeExpired()
}

func (s *AdminService) loginExpiry() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.LoginExpiry > 0 {
		return s.cfg.LoginExpiry
	}
	return 10 * time.Minute
}

// newLoginCode returns a 6-hex-digit uppercase one-time code.
func newLoginCode() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// Overview is the admin panel header block.
type Overview struct {
	Users      int64
	Tests      int64
	Questions  int64
	TodayTests int64
}

func (s *AdminService) Overview() (*Overview, error) {
	users, err := s.users.CountActive()
	if err != nil {
		return nil, err
	}
	tests, err := s.results.CountAll()
	if err != nil {
		return nil, err
	}
	questions, err := s.questions.CountAll()
	if err != nil {
		return nil, err
	}
	today, err := s.results.CountSince(startOfToday())
	if err != nil {
		return nil, err
	}
	return &Overview{Users: users, Tests: tests, Questions: questions, TodayTests: today}, nil
}

// Stats is the comprehensive statistics screen.
type Stats struct {
	TotalUsers  int64
	ActiveWeek  int64
	ActiveMonth int64
	TestedUsers int64
	NewToday    int64

	TotalTests    int64
	TodayTests    int64
	AvgPercentage float64
	MaxScore      int
	MinScore      int

	TotalQuestions   int64
	ActiveQuestions  int64
	QuestionsByLevel map[model.Level]int64
}

func (s *AdminService) Statistics() (*Stats, error) {
	stats := &Stats{}
	var err error

	now := time.Now()
	if stats.TotalUsers, err = s.users.CountActive(); err != nil {
		return nil, err
	}
	if stats.ActiveWeek, err = s.users.CountActiveSince(now.AddDate(0, 0, -7)); err != nil {
		return nil, err
	}
	if stats.ActiveMonth, err = s.users.CountActiveSince(now.AddDate(0, 0, -30)); err != nil {
		return nil, err
	}
	if stats.TestedUsers, err = s.users.CountTested(); err != nil {
		return nil, err
	}
	if stats.NewToday, err = s.users.CountJoinedSince(startOfToday()); err != nil {
		return nil, err
	}

	if stats.TotalTests, err = s.results.CountAll(); err != nil {
		return nil, err
	}
	if stats.TodayTests, err = s.results.CountSince(startOfToday()); err != nil {
		return nil, err
	}
	if stats.AvgPercentage, err = s.results.AvgPercentage(); err != nil {
		return nil, err
	}
	if stats.MaxScore, err = s.results.MaxScore(); err != nil {
		return nil, err
	}
	if stats.MinScore, err = s.results.MinPositiveScore(); err != nil {
		return nil, err
	}

	if stats.TotalQuestions, err = s.questions.CountAll(); err != nil {
		return nil, err
	}
	inactive, err := s.questions.CountInactive()
	if err != nil {
		return nil, err
	}
	stats.ActiveQuestions = stats.TotalQuestions - inactive
	if stats.QuestionsByLevel, err = s.questions.CountsByLevel(); err != nil {
		return nil, err
	}

	return stats, nil
}

func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
