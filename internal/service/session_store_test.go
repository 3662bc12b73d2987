package service

import (
	"english_test_bot/internal/model"
	"english_test_bot/internal/util"
	"errors"
	"sync"
	"testing"
	"time"
)

func storeSession(userID int64, n int) *model.QuizSession {
	now := time.Now()
	return &model.QuizSession{
		UserID:      userID,
		Level:       model.Beginner,
		Questions:   makeQuestions(n),
		StartedAt:   now,
		LastTouched: now,
	}
}

func TestMemoryStorePutReplacesSession(t *testing.T) {
	store := NewMemorySessionStore()
	store.Put(storeSession(1, 3))

	replacement := storeSession(1, 5)
	store.Put(replacement)

	got, ok := store.Get(1)
	if !ok || got.Total() != 5 {
		t.Fatalf("expected the replacement session, got %+v", got)
	}
}

func TestCompareAndAdvance(t *testing.T) {
	store := NewMemorySessionStore()
	store.Put(storeSession(1, 3))

	if err := store.CompareAndAdvance(1, 0, func(*model.QuizSession) error { return nil }); err != nil {
		t.Fatalf("advance from 0: %v", err)
	}
	if err := store.CompareAndAdvance(1, 0, func(*model.QuizSession) error { return nil }); !errors.Is(err, util.ErrStaleAnswer) {
		t.Fatalf("expected ErrStaleAnswer, got %v", err)
	}
	if err := store.CompareAndAdvance(2, 0, func(*model.QuizSession) error { return nil }); !errors.Is(err, util.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestCompareAndAdvanceRejectsExhaustedSession(t *testing.T) {
	store := NewMemorySessionStore()
	store.Put(storeSession(1, 3))

	for i := 0; i < 3; i++ {
		if err := store.CompareAndAdvance(1, i, func(*model.QuizSession) error { return nil }); err != nil {
			t.Fatalf("advance from %d: %v", i, err)
		}
	}

	// Index 3 equals the session's current index, but there is no fourth
	// question to apply against.
	called := false
	err := store.CompareAndAdvance(1, 3, func(*model.QuizSession) error {
		called = true
		return nil
	})
	if !errors.Is(err, util.ErrStaleAnswer) {
		t.Fatalf("expected ErrStaleAnswer, got %v", err)
	}
	if called {
		t.Fatal("apply must not run on an exhausted session")
	}
	got, _ := store.Get(1)
	if got.CurrentIndex != 3 {
		t.Fatalf("rejected advance moved the index to %d", got.CurrentIndex)
	}
}

func TestCompareAndAdvanceVeto(t *testing.T) {
	store := NewMemorySessionStore()
	store.Put(storeSession(1, 3))

	veto := errors.New("veto")
	if err := store.CompareAndAdvance(1, 0, func(*model.QuizSession) error { return veto }); !errors.Is(err, veto) {
		t.Fatalf("expected the veto error, got %v", err)
	}
	got, _ := store.Get(1)
	if got.CurrentIndex != 0 {
		t.Fatalf("vetoed apply advanced the index to %d", got.CurrentIndex)
	}
}

// Concurrent duplicate events for the same index must produce exactly
// one advance.
func TestCompareAndAdvanceConcurrentDuplicates(t *testing.T) {
	store := NewMemorySessionStore()
	store.Put(storeSession(1, 10))

	const attempts = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.CompareAndAdvance(1, 0, func(s *model.QuizSession) error {
				s.Score++
				return nil
			})
			if err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, _ := store.Get(1)
	if applied != 1 || got.Score != 1 || got.CurrentIndex != 1 {
		t.Fatalf("expected exactly one advance, got applied=%d score=%d index=%d",
			applied, got.Score, got.CurrentIndex)
	}
}

func TestSweepIdle(t *testing.T) {
	store := NewMemorySessionStore()

	stale := storeSession(1, 3)
	stale.LastTouched = time.Now().Add(-time.Hour)
	store.Put(stale)
	store.Put(storeSession(2, 3))

	abandoned := store.SweepIdle(30 * time.Minute)
	if len(abandoned) != 1 || abandoned[0].UserID != 1 {
		t.Fatalf("unexpected abandoned set: %+v", abandoned)
	}
	if _, ok := store.Get(1); ok {
		t.Fatal("stale session should be removed")
	}
	if _, ok := store.Get(2); !ok {
		t.Fatal("fresh session should remain")
	}
}
