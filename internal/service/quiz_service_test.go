package service

import (
	"english_test_bot/internal/config"
	"english_test_bot/internal/model"
	"english_test_bot/internal/util"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeQuestionSource struct {
	questions []model.Question
	err       error
}

func (f *fakeQuestionSource) CountActive(level model.Level) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.questions)), nil
}

func (f *fakeQuestionSource) FindActiveByLevel(level model.Level) ([]model.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.questions, nil
}

type fakeResultSink struct {
	recorded []*model.TestResult
	nextID   uint
	err      error
}

func (f *fakeResultSink) Record(telegramID int64, username, firstName, lastName string, result *model.TestResult) (uint, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.recorded = append(f.recorded, result)
	f.nextID++
	return f.nextID, nil
}

func makeQuestions(n int) []model.Question {
	questions := make([]model.Question, n)
	for i := range questions {
		questions[i] = model.Question{
			BaseModel:    model.BaseModel{ID: uint(i + 1)},
			Level:        model.Beginner,
			Text:         fmt.Sprintf("question %d", i+1),
			OptionA:      "right",
			OptionB:      "wrong",
			CorrectLabel: "A",
			IsActive:     true,
		}
	}
	return questions
}

func newTestQuizService(source *fakeQuestionSource, sink *fakeResultSink) *QuizService {
	cfg := config.QuizConfig{
		Targets:       map[string]int{string(model.Beginner): 5},
		DefaultTarget: 10,
		MinQuestions:  3,
		IdleTimeout:   30 * time.Minute,
	}
	return NewQuizService(NewMemorySessionStore(), source, sink, cfg)
}

func TestStartSamplesTargetQuestions(t *testing.T) {
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(20)}, &fakeResultSink{})

	session, err := svc.Start(Identity{TelegramID: 1}, model.Beginner)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := session.Total(); got != 5 {
		t.Fatalf("expected 5 questions, got %d", got)
	}

	seen := make(map[uint]bool)
	for _, q := range session.Questions {
		if seen[q.ID] {
			t.Fatalf("question %d selected twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestStartWithSmallStockUsesAllQuestions(t *testing.T) {
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(4)}, &fakeResultSink{})

	session, err := svc.Start(Identity{TelegramID: 1}, model.Beginner)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := session.Total(); got != 4 {
		t.Fatalf("expected all 4 questions, got %d", got)
	}
}

func TestStartRejectsInsufficientStock(t *testing.T) {
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(2)}, &fakeResultSink{})

	if _, err := svc.Start(Identity{TelegramID: 1}, model.Beginner); !errors.Is(err, util.ErrInsufficientQuestions) {
		t.Fatalf("expected ErrInsufficientQuestions, got %v", err)
	}
}

func TestStartReplacesExistingSession(t *testing.T) {
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(10)}, &fakeResultSink{})
	user := Identity{TelegramID: 1}

	if _, err := svc.Start(user, model.Beginner); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if _, err := svc.SubmitAnswer(user.TelegramID, 0, "A"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	session, err := svc.Start(user, model.Beginner)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if session.CurrentIndex != 0 || session.Score != 0 {
		t.Fatalf("expected fresh session, got index=%d score=%d", session.CurrentIndex, session.Score)
	}
}

func TestSubmitAnswerScoresAndAdvances(t *testing.T) {
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(5)}, &fakeResultSink{})
	user := Identity{TelegramID: 1}

	if _, err := svc.Start(user, model.Beginner); err != nil {
		t.Fatalf("Start: %v", err)
	}

	outcome, err := svc.SubmitAnswer(user.TelegramID, 0, "A")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !outcome.Record.IsCorrect {
		t.Fatal("expected a correct answer")
	}
	if outcome.NextIndex != 1 || outcome.Done {
		t.Fatalf("unexpected outcome: next=%d done=%v", outcome.NextIndex, outcome.Done)
	}

	outcome, err = svc.SubmitAnswer(user.TelegramID, 1, "B")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if outcome.Record.IsCorrect {
		t.Fatal("expected a wrong answer")
	}

	session, _ := svc.Session(user.TelegramID)
	if session.Score != 1 {
		t.Fatalf("expected score 1, got %d", session.Score)
	}
}

func TestSubmitAnswerRejectsStaleIndex(t *testing.T) {
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(5)}, &fakeResultSink{})
	user := Identity{TelegramID: 1}

	if _, err := svc.Start(user, model.Beginner); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.SubmitAnswer(user.TelegramID, 0, "A"); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	// Double tap on the already-answered question.
	if _, err := svc.SubmitAnswer(user.TelegramID, 0, "A"); !errors.Is(err, util.ErrStaleAnswer) {
		t.Fatalf("expected ErrStaleAnswer, got %v", err)
	}

	session, _ := svc.Session(user.TelegramID)
	if session.Score != 1 || session.CurrentIndex != 1 {
		t.Fatalf("stale submit mutated session: score=%d index=%d", session.Score, session.CurrentIndex)
	}
}

func TestSubmitAnswerRejectsUnknownLabel(t *testing.T) {
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(5)}, &fakeResultSink{})
	user := Identity{TelegramID: 1}

	if _, err := svc.Start(user, model.Beginner); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The questions only have options A and B.
	if _, err := svc.SubmitAnswer(user.TelegramID, 0, "D"); !errors.Is(err, util.ErrInvalidAnswerLabel) {
		t.Fatalf("expected ErrInvalidAnswerLabel, got %v", err)
	}

	session, _ := svc.Session(user.TelegramID)
	if session.CurrentIndex != 0 {
		t.Fatalf("rejected answer advanced the session to %d", session.CurrentIndex)
	}
}

func TestSubmitAnswerWithoutSession(t *testing.T) {
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(5)}, &fakeResultSink{})

	if _, err := svc.SubmitAnswer(42, 0, "A"); !errors.Is(err, util.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestSkipCountsAsWrongInReport(t *testing.T) {
	sink := &fakeResultSink{}
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(3)}, sink)
	user := Identity{TelegramID: 1}

	if _, err := svc.Start(user, model.Beginner); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := svc.SubmitAnswer(user.TelegramID, 0, "A"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Skip(user.TelegramID, 1); err != nil {
		t.Fatalf("skip: %v", err)
	}
	outcome, err := svc.Skip(user.TelegramID, 2)
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if !outcome.Done {
		t.Fatal("expected session to be complete")
	}

	report, err := svc.Finish(user)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if report.CorrectAnswers != 1 || report.WrongAnswers != 2 || report.SkippedAnswers != 2 {
		t.Fatalf("unexpected counts: correct=%d wrong=%d skipped=%d",
			report.CorrectAnswers, report.WrongAnswers, report.SkippedAnswers)
	}
	want := float64(1) / 3 * 100
	if report.Percentage < want-0.01 || report.Percentage > want+0.01 {
		t.Fatalf("expected percentage %.2f, got %.2f", want, report.Percentage)
	}
}

func TestFinishRequiresCompleteSession(t *testing.T) {
	sink := &fakeResultSink{}
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(3)}, sink)
	user := Identity{TelegramID: 1}

	if _, err := svc.Start(user, model.Beginner); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.SubmitAnswer(user.TelegramID, 0, "A"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.Finish(user); !errors.Is(err, util.ErrSessionNotComplete) {
		t.Fatalf("expected ErrSessionNotComplete, got %v", err)
	}
	if len(sink.recorded) != 0 {
		t.Fatal("incomplete session must not be persisted")
	}
	if _, ok := svc.Session(user.TelegramID); !ok {
		t.Fatal("failed finish must keep the session")
	}
}

func TestFinishPersistsAndRemovesSession(t *testing.T) {
	sink := &fakeResultSink{}
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(3)}, sink)
	user := Identity{TelegramID: 1}

	if _, err := svc.Start(user, model.Beginner); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.SubmitAnswer(user.TelegramID, i, "A"); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	report, err := svc.Finish(user)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if report.ResultID != 1 {
		t.Fatalf("expected result id 1, got %d", report.ResultID)
	}
	if len(sink.recorded) != 1 {
		t.Fatalf("expected 1 persisted result, got %d", len(sink.recorded))
	}
	if sink.recorded[0].Score != 3 || sink.recorded[0].Percentage != 100 {
		t.Fatalf("unexpected persisted result: %+v", sink.recorded[0])
	}
	if _, ok := svc.Session(user.TelegramID); ok {
		t.Fatal("finished session should be removed")
	}
}

func TestFinishKeepsSessionOnPersistenceFailure(t *testing.T) {
	sink := &fakeResultSink{err: util.ErrPersistenceFailure}
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(3)}, sink)
	user := Identity{TelegramID: 1}

	if _, err := svc.Start(user, model.Beginner); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.SubmitAnswer(user.TelegramID, i, "A"); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if _, err := svc.Finish(user); !errors.Is(err, util.ErrPersistenceFailure) {
		t.Fatalf("expected ErrPersistenceFailure, got %v", err)
	}
	if _, ok := svc.Session(user.TelegramID); !ok {
		t.Fatal("session must survive a failed persist for a retry")
	}
}

func TestSubmitAnswerAfterLastQuestionIsStale(t *testing.T) {
	// A session kept alive by a failed persist sits at index == total.
	// A resent callback for that index must not reach the question slice.
	sink := &fakeResultSink{err: util.ErrPersistenceFailure}
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(3)}, sink)
	user := Identity{TelegramID: 1}

	if _, err := svc.Start(user, model.Beginner); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.SubmitAnswer(user.TelegramID, i, "A"); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if _, err := svc.Finish(user); !errors.Is(err, util.ErrPersistenceFailure) {
		t.Fatalf("expected ErrPersistenceFailure, got %v", err)
	}

	if _, err := svc.SubmitAnswer(user.TelegramID, 3, "A"); !errors.Is(err, util.ErrStaleAnswer) {
		t.Fatalf("expected ErrStaleAnswer, got %v", err)
	}
	if _, err := svc.Skip(user.TelegramID, 3); !errors.Is(err, util.ErrStaleAnswer) {
		t.Fatalf("expected ErrStaleAnswer on skip, got %v", err)
	}

	session, ok := svc.Session(user.TelegramID)
	if !ok {
		t.Fatal("session must survive the rejected submits")
	}
	if session.CurrentIndex != 3 || session.Score != 3 {
		t.Fatalf("rejected submit mutated session: index=%d score=%d",
			session.CurrentIndex, session.Score)
	}
}

func TestCurrentQuestionOnCompleteSession(t *testing.T) {
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(3)}, &fakeResultSink{err: util.ErrPersistenceFailure})
	user := Identity{TelegramID: 1}

	if _, err := svc.Start(user, model.Beginner); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.SubmitAnswer(user.TelegramID, i, "A"); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	q, index, total, err := svc.CurrentQuestion(user.TelegramID)
	if !errors.Is(err, util.ErrSessionComplete) {
		t.Fatalf("expected ErrSessionComplete, got %v", err)
	}
	if q != nil {
		t.Fatal("complete session must not yield a question")
	}
	if index != 3 || total != 3 {
		t.Fatalf("unexpected position: index=%d total=%d", index, total)
	}
}

func TestCancelDiscardsSession(t *testing.T) {
	sink := &fakeResultSink{}
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(3)}, sink)
	user := Identity{TelegramID: 1}

	if _, err := svc.Start(user, model.Beginner); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := svc.Cancel(user.TelegramID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, ok := svc.Session(user.TelegramID); ok {
		t.Fatal("cancelled session should be gone")
	}
	if len(sink.recorded) != 0 {
		t.Fatal("cancelled session must not be persisted")
	}
	if err := svc.Cancel(user.TelegramID); !errors.Is(err, util.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestSweepIdleAbandonsStaleSessions(t *testing.T) {
	sink := &fakeResultSink{}
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(3)}, sink)

	if _, err := svc.Start(Identity{TelegramID: 1}, model.Beginner); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Start(Identity{TelegramID: 2}, model.Beginner); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Backdate user 1's session past the idle timeout.
	session, _ := svc.Session(1)
	session.LastTouched = time.Now().Add(-time.Hour)

	abandoned := svc.SweepIdle()
	if len(abandoned) != 1 || abandoned[0].UserID != 1 {
		t.Fatalf("unexpected sweep result: %+v", abandoned)
	}
	if _, ok := svc.Session(1); ok {
		t.Fatal("abandoned session should be removed")
	}
	if _, ok := svc.Session(2); !ok {
		t.Fatal("fresh session should survive the sweep")
	}
	if len(sink.recorded) != 0 {
		t.Fatal("abandoned sessions must not be persisted")
	}
}

func TestLevelCounts(t *testing.T) {
	svc := newTestQuizService(&fakeQuestionSource{questions: makeQuestions(7)}, &fakeResultSink{})

	counts, err := svc.LevelCounts()
	if err != nil {
		t.Fatalf("LevelCounts: %v", err)
	}
	if len(counts) != len(model.AllLevels) {
		t.Fatalf("expected %d levels, got %d", len(model.AllLevels), len(counts))
	}
	if counts[model.Beginner] != 7 {
		t.Fatalf("expected 7 questions, got %d", counts[model.Beginner])
	}
}
