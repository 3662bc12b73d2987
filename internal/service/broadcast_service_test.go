package service

import (
	"context"
	"english_test_bot/internal/model"
	"english_test_bot/internal/repository"
	"errors"
	"testing"
)

type fakeSender struct {
	delivered []int64
	failFor   map[int64]bool
}

func (f *fakeSender) SendText(chatID int64, text string) error {
	if f.failFor[chatID] {
		return errors.New("blocked by user")
	}
	f.delivered = append(f.delivered, chatID)
	return nil
}

func TestBroadcastSend(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	for _, id := range []int64{10, 20, 30} {
		if _, err := users.Upsert(id, "", "User", ""); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	svc := NewBroadcastService(users, repository.NewBroadcastRepository(db), 100)
	sender := &fakeSender{}

	sent, total, err := svc.Send(context.Background(), testAdminID, "hello", sender)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent != 3 || total != 3 {
		t.Fatalf("expected 3/3, got %d/%d", sent, total)
	}

	var row model.Broadcast
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("broadcast row missing: %v", err)
	}
	if row.Status != model.BroadcastCompleted || row.SentTo != 3 || row.TotalUsers != 3 {
		t.Fatalf("unexpected broadcast row: %+v", row)
	}
}

// A blocked recipient is skipped, not fatal.
func TestBroadcastSkipsFailedRecipients(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	for _, id := range []int64{10, 20, 30} {
		if _, err := users.Upsert(id, "", "User", ""); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	svc := NewBroadcastService(users, repository.NewBroadcastRepository(db), 100)
	sender := &fakeSender{failFor: map[int64]bool{20: true}}

	sent, total, err := svc.Send(context.Background(), testAdminID, "hello", sender)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent != 2 || total != 3 {
		t.Fatalf("expected 2/3, got %d/%d", sent, total)
	}

	var row model.Broadcast
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("broadcast row missing: %v", err)
	}
	if row.SentTo != 2 {
		t.Fatalf("expected 2 recorded deliveries, got %d", row.SentTo)
	}
}

func TestBroadcastStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	if _, err := users.Upsert(10, "", "User", ""); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	svc := NewBroadcastService(users, repository.NewBroadcastRepository(db), 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sent, _, err := svc.Send(ctx, testAdminID, "hello", &fakeSender{})
	if err == nil {
		t.Fatal("expected an error from the cancelled context")
	}
	if sent != 0 {
		t.Fatalf("expected no deliveries, got %d", sent)
	}

	var row model.Broadcast
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("broadcast row missing: %v", err)
	}
	if row.Status != model.BroadcastFailed {
		t.Fatalf("expected failed status, got %q", row.Status)
	}
}
