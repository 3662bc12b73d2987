package service

import (
	"english_test_bot/internal/model"
	"english_test_bot/internal/util"
	"sync"
	"time"
)

// SessionStore holds the process-wide mapping from telegram user id to
// the active quiz session. All mutation of a session happens inside the
// store's lock, so two near-simultaneous events for the same user cannot
// both advance from the same index.
type SessionStore interface {
	Get(userID int64) (*model.QuizSession, bool)
	Put(session *model.QuizSession)
	Remove(userID int64)
	// CompareAndAdvance applies a mutation to the session only if its
	// current index still equals expectedIndex and questions remain. A
	// stale or out-of-range index yields ErrStaleAnswer; a missing
	// session yields ErrNoActiveSession. The apply callback may veto
	// the advance by returning an error.
	CompareAndAdvance(userID int64, expectedIndex int, apply func(*model.QuizSession) error) error
	// SweepIdle removes and returns sessions untouched for longer than
	// the timeout.
	SweepIdle(timeout time.Duration) []*model.QuizSession
}

type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*model.QuizSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[int64]*model.QuizSession)}
}

func (s *MemorySessionStore) Get(userID int64) (*model.QuizSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	return session, ok
}

// Put installs a session, silently replacing any prior one for the same
// user (last start wins).
func (s *MemorySessionStore) Put(session *model.QuizSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = session
}

func (s *MemorySessionStore) Remove(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func (s *MemorySessionStore) CompareAndAdvance(userID int64, expectedIndex int, apply func(*model.QuizSession) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		return util.ErrNoActiveSession
	}
	// A completed session has CurrentIndex == Total, so an equal
	// expectedIndex would otherwise pass the compare and index past the
	// question slice. Callback data is client-controlled.
	if session.Complete() || session.CurrentIndex != expectedIndex {
		return util.ErrStaleAnswer
	}
	if err := apply(session); err != nil {
		return err
	}
	session.CurrentIndex++
	session.LastTouched = time.Now()
	return nil
}

func (s *MemorySessionStore) SweepIdle(timeout time.Duration) []*model.QuizSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-timeout)
	var abandoned []*model.QuizSession
	for userID, session := range s.sessions {
		if session.LastTouched.Before(cutoff) {
			abandoned = append(abandoned, session)
			delete(s.sessions, userID)
		}
	}
	return abandoned
}
