package survey

import (
	"context"
	"errors"
	"testing"

	"github.com/habibshah-ds/survay-captcha-saas/internal/survey/domain"
)

type stubSource struct {
	q   *domain.Question
	err error
}

func (s *stubSource) PickRandom(ctx context.Context, clientID string) (*domain.Question, error) {
	return s.q, s.err
}

func TestPick_ReturnsBankQuestion(t *testing.T) {
	want := &domain.Question{ID: "q1", Text: "Favorite color?", Type: domain.QuestionTypeText}
	sel := NewSelector(&stubSource{q: want})

	got, err := sel.Pick(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if got.ID != "q1" {
		t.Errorf("question = %+v, want q1", got)
	}
}

func TestPick_FallsBackOnEmptyBank(t *testing.T) {
	sel := NewSelector(&stubSource{})

	got, err := sel.Pick(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if got == nil || got.Type != domain.QuestionTypeMultipleChoice || len(got.Options) != 2 {
		t.Errorf("expected fallback question, got %+v", got)
	}
}

func TestPick_PropagatesRepoError(t *testing.T) {
	boom := errors.New("db down")
	sel := NewSelector(&stubSource{err: boom})

	if _, err := sel.Pick(context.Background(), "client-1"); !errors.Is(err, boom) {
		t.Errorf("Pick error = %v, want %v", err, boom)
	}
}
