package service

import (
	"english_test_bot/internal/model"
	"english_test_bot/internal/repository"
	"english_test_bot/internal/util"

	"gorm.io/gorm"
)

// ResultService serves the user-facing result screens and the offline
// ingestion path; native session completion goes through QuizService.
type ResultService struct {
	users   *repository.UserRepository
	results *repository.ResultRepository
}

func NewResultService(users *repository.UserRepository, results *repository.ResultRepository) *ResultService {
	return &ResultService{users: users, results: results}
}

// Touch registers the user on first contact and refreshes the identity
// fields afterwards.
func (s *ResultService) Touch(user Identity) (*model.User, error) {
	return s.users.Upsert(user.TelegramID, user.Username, user.FirstName, user.LastName)
}

// IngestOffline stores a RESULT:-prefixed submission through the same
// repository contract as native sessions.
func (s *ResultService) IngestOffline(user Identity, text string) (uint, *OfflineReport, error) {
	report, err := ParseOfflineReport(text)
	if err != nil {
		return 0, nil, err
	}
	resultID, err := s.results.Record(user.TelegramID, user.Username, user.FirstName, user.LastName, report.Result())
	if err != nil {
		return 0, nil, err
	}
	return resultID, report, nil
}

// RecentResults returns the latest results with the aggregate line, or
// empty values when the user has never finished a test.
func (s *ResultService) RecentResults(telegramID int64, limit int) ([]model.TestResult, *repository.UserStats, error) {
	user, err := s.users.FindByTelegramID(telegramID)
	if err == gorm.ErrRecordNotFound {
		return nil, &repository.UserStats{}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	results, err := s.results.Recent(user.ID, limit)
	if err != nil {
		return nil, nil, err
	}
	stats, err := s.results.Aggregate(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return results, stats, nil
}

func (s *ResultService) Profile(telegramID int64) (*model.User, error) {
	user, err := s.users.FindByTelegramID(telegramID)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
