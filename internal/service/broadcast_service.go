package service

import (
	"context"
	"english_test_bot/internal/model"
	"english_test_bot/internal/repository"
	"english_test_bot/pkg/logger"
	"english_test_bot/pkg/monitoring"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MessageSender is what the transport gives the broadcaster; one send
// per recipient.
type MessageSender interface {
	SendText(chatID int64, text string) error
}

// BroadcastService fans a message out to every active user, paced under
// the Telegram API limit. A failed recipient is logged and skipped; the
// broadcast row records how many deliveries landed.
type BroadcastService struct {
	users      *repository.UserRepository
	broadcasts *repository.BroadcastRepository

	mu      sync.Mutex
	limiter *rate.Limiter
}

func NewBroadcastService(users *repository.UserRepository, broadcasts *repository.BroadcastRepository, ratePerSecond int) *BroadcastService {
	if ratePerSecond <= 0 {
		ratePerSecond = 20
	}
	return &BroadcastService{
		users:      users,
		broadcasts: broadcasts,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
	}
}

func (s *BroadcastService) UpdateRate(ratePerSecond int) {
	if ratePerSecond <= 0 {
		return
	}
	s.mu.Lock()
	s.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond)
	s.mu.Unlock()
}

func (s *BroadcastService) wait(ctx context.Context) error {
	s.mu.Lock()
	limiter := s.limiter
	s.mu.Unlock()
	return limiter.Wait(ctx)
}

// Send delivers text to all active users and returns (sent, total).
func (s *BroadcastService) Send(ctx context.Context, adminID int64, text string, sender MessageSender) (int, int, error) {
	ids, err := s.users.ActiveTelegramIDs()
	if err != nil {
		return 0, 0, err
	}

	row := &model.Broadcast{
		AdminID:     adminID,
		MessageText: text,
		TotalUsers:  len(ids),
		Status:      model.BroadcastPending,
	}
	if err := s.broadcasts.Create(row); err != nil {
		return 0, 0, err
	}

	sent := 0
	for _, chatID := range ids {
		if err := s.wait(ctx); err != nil {
			// Shutdown mid-broadcast; record what was delivered.
			s.broadcasts.Finish(row.ID, sent, model.BroadcastFailed)
			return sent, len(ids), err
		}
		if err := sender.SendText(chatID, text); err != nil {
			logger.Log.Warn("broadcast delivery failed",
				zap.Int64("chat_id", chatID),
				zap.Error(err))
			monitoring.BroadcastCounter.WithLabelValues("failed").Inc()
			continue
		}
		sent++
		monitoring.BroadcastCounter.WithLabelValues("sent").Inc()
	}

	if err := s.broadcasts.Finish(row.ID, sent, model.BroadcastCompleted); err != nil {
		return sent, len(ids), err
	}
	return sent, len(ids), nil
}
