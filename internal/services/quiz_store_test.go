package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func quizStores(t *testing.T) map[string]QuizStore {
	t.Helper()
	sqlite, err := NewSQLiteQuizStore(filepath.Join(t.TempDir(), "quiz.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]QuizStore{
		"sqlite": sqlite,
		"memory": NewMemoryQuizStore(100),
	}
}

func TestQuizStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, store := range quizStores(t) {
		sess, err := store.Create(ctx, FallbackQuestions(), QuizSourceFallback)
		if err != nil {
			t.Fatalf("%s: create: %v", name, err)
		}
		if len(sess.ID) != 26 || len(sess.UserAnswers) != 10 {
			t.Fatalf("%s: unexpected session %+v", name, sess)
		}

		if _, err := store.Answer(ctx, sess.ID, 0, intp(1)); err != nil {
			t.Fatalf("%s: answer: %v", name, err)
		}
		got, err := store.Get(ctx, sess.ID)
		if err != nil {
			t.Fatalf("%s: get: %v", name, err)
		}
		if got.UserAnswers[0] == nil || *got.UserAnswers[0] != 1 || got.UserAnswers[1] != nil {
			t.Fatalf("%s: answers not stored: %v", name, got.UserAnswers)
		}
		if len(got.Questions) != 10 || got.Questions[9].CorrectAnswer != 2 {
			t.Fatalf("%s: questions not stored", name)
		}

		done, err := store.Complete(ctx, sess.ID, CalculateScore(got.Questions, got.UserAnswers))
		if err != nil {
			t.Fatalf("%s: complete: %v", name, err)
		}
		if !done.Completed || done.Score != 10 || done.Passed || done.CompletedAt == nil {
			t.Fatalf("%s: unexpected completed session %+v", name, done)
		}
		if _, err := store.Complete(ctx, sess.ID, CalculateScore(got.Questions, got.UserAnswers)); !errors.Is(err, ErrSessionCompleted) {
			t.Fatalf("%s: expected ErrSessionCompleted on second complete, got %v", name, err)
		}
		if _, err := store.Answer(ctx, sess.ID, 1, intp(1)); !errors.Is(err, ErrSessionCompleted) {
			t.Fatalf("%s: expected ErrSessionCompleted on late answer, got %v", name, err)
		}
	}
}

func TestQuizStoreRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	for name, store := range quizStores(t) {
		sess, err := store.Create(ctx, FallbackQuestions(), QuizSourceFallback)
		if err != nil {
			t.Fatalf("%s: create: %v", name, err)
		}
		if _, err := store.Answer(ctx, sess.ID, 10, intp(0)); !errors.Is(err, ErrInvalidAnswer) {
			t.Fatalf("%s: expected ErrInvalidAnswer for index, got %v", name, err)
		}
		if _, err := store.Answer(ctx, sess.ID, 0, intp(4)); !errors.Is(err, ErrInvalidAnswer) {
			t.Fatalf("%s: expected ErrInvalidAnswer for option, got %v", name, err)
		}
		if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("%s: expected ErrSessionNotFound, got %v", name, err)
		}
		if _, err := store.Complete(ctx, "missing", CalculateScore(nil, nil)); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("%s: expected ErrSessionNotFound on complete, got %v", name, err)
		}
	}
}

func TestMemoryQuizStoreIsBounded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryQuizStore(2)
	first, _ := store.Create(ctx, FallbackQuestions(), QuizSourceFallback)
	store.Create(ctx, FallbackQuestions(), QuizSourceFallback)
	store.Create(ctx, FallbackQuestions(), QuizSourceFallback)
	if _, err := store.Get(ctx, first.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected oldest session to be evicted, got %v", err)
	}
}

func TestQuizSessionsSubmitTwice(t *testing.T) {
	ctx := context.Background()
	sessions := NewQuizSessions(NewQuizService(nil), NewMemoryQuizStore(10))
	sess, err := sessions.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if sess.Source != QuizSourceFallback {
		t.Fatalf("expected fallback questions without a generator, got %s", sess.Source)
	}
	for i, q := range sess.Questions {
		if _, err := sessions.Answer(ctx, sess.ID, i, intp(q.CorrectAnswer)); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}
	done, err := sessions.Submit(ctx, sess.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if done.Score != 100 || !done.Passed {
		t.Fatalf("unexpected score %+v", done)
	}
	if _, err := sessions.Submit(ctx, sess.ID); !errors.Is(err, ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}
}

func TestSessionViewHidesAnswersUntilCompleted(t *testing.T) {
	ctx := context.Background()
	sessions := NewQuizSessions(NewQuizService(nil), NewMemoryQuizStore(10))
	sess, _ := sessions.Start(ctx)
	for _, q := range sess.View().Questions {
		if q.CorrectAnswer != nil || q.Explanation != "" {
			t.Fatalf("answer key leaked: %+v", q)
		}
	}
	done, _ := sessions.Submit(ctx, sess.ID)
	if v := done.View(); v.Questions[0].CorrectAnswer == nil {
		t.Fatalf("expected answer key after completion")
	}
}
