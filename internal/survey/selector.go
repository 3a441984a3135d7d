// Package survey selects questions for challenges and validates submitted answers.
package survey

import (
	"context"

	"github.com/habibshah-ds/survay-captcha-saas/internal/survey/domain"
)

// QuestionSource is the minimal question repository needed by the selector.
type QuestionSource interface {
	PickRandom(ctx context.Context, clientID string) (*domain.Question, error)
}

// Selector picks a survey question for a client, falling back to the built-in
// question when the bank has nothing for this client.
type Selector struct {
	source QuestionSource
}

// NewSelector returns a Selector reading from source.
func NewSelector(source QuestionSource) *Selector {
	return &Selector{source: source}
}

// Pick returns a question for the client. Repository failures propagate;
// an empty bank yields the fallback question, never an error.
func (s *Selector) Pick(ctx context.Context, clientID string) (*domain.Question, error) {
	q, err := s.source.PickRandom(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return domain.Fallback(), nil
	}
	return q, nil
}
