package service

import (
	"english_test_bot/internal/model"
	"english_test_bot/internal/repository"
	"english_test_bot/internal/util"
	"errors"
	"testing"
)

func newTestResultService(t *testing.T) (*ResultService, *repository.ResultRepository) {
	t.Helper()
	db := newTestDB(t)
	results := repository.NewResultRepository(db)
	return NewResultService(repository.NewUserRepository(db), results), results
}

func TestIngestOffline(t *testing.T) {
	svc, _ := newTestResultService(t)
	user := Identity{TelegramID: 7, Username: "dana", FirstName: "Dana"}

	resultID, report, err := svc.IngestOffline(user,
		`RESULT:{"level":"intermediate","score":8,"total_questions":10,"correct_answers":8,"wrong_answers":2,"percentage":80}`)
	if err != nil {
		t.Fatalf("IngestOffline: %v", err)
	}
	if resultID == 0 || report.Level != "intermediate" {
		t.Fatalf("unexpected ingest outcome: id=%d report=%+v", resultID, report)
	}

	results, stats, err := svc.RecentResults(user.TelegramID, 5)
	if err != nil {
		t.Fatalf("RecentResults: %v", err)
	}
	if len(results) != 1 || !results[0].IsOffline {
		t.Fatalf("expected one offline result, got %+v", results)
	}
	if stats.Count != 1 || stats.MaxScore != 8 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	profile, err := svc.Profile(user.TelegramID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.TotalTests != 1 || profile.BestScore != 8 {
		t.Fatalf("unexpected profile aggregates: %+v", profile)
	}
	// The level stays at the column default; an offline submission
	// carries no trusted level.
	if profile.CurrentLevel != model.Beginner {
		t.Fatalf("offline ingest must not set the level, got %q", profile.CurrentLevel)
	}
}

func TestIngestOfflineRejectsBrokenPayload(t *testing.T) {
	svc, _ := newTestResultService(t)

	if _, _, err := svc.IngestOffline(Identity{TelegramID: 7}, `RESULT:{broken`); err == nil {
		t.Fatal("expected an error for broken JSON")
	}
	if _, _, err := svc.RecentResults(7, 5); err != nil {
		t.Fatalf("RecentResults: %v", err)
	}
	if _, err := svc.Profile(7); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatal("rejected ingest must not create the user")
	}
}

func TestRecentResultsForUnknownUser(t *testing.T) {
	svc, _ := newTestResultService(t)

	results, stats, err := svc.RecentResults(404, 5)
	if err != nil {
		t.Fatalf("RecentResults: %v", err)
	}
	if len(results) != 0 || stats.Count != 0 {
		t.Fatalf("expected empty results, got %v %+v", results, stats)
	}
}
