// Package risk scores challenge completion attempts from request signals.
// Scores range 0-100; higher means more bot-like. The scorer is a strategy
// resolved at construction: the built-in heuristic by default, or a Rego
// policy when one is configured.
package risk

import (
	"context"
	"strings"
)

// Signals are the inputs to a scoring decision for one completion attempt.
type Signals struct {
	ClientID      string
	IP            string
	UserAgent     string
	SolveTimeMs   int64
	AnswerPresent bool
}

// Scorer scores a completion attempt. Implementations must return a value in
// [0, 100] and must not reject genuine humans on survey content alone.
type Scorer interface {
	Score(ctx context.Context, sig Signals) (int, error)
}

// Heuristic is the default scorer: lightweight solve-time, user-agent, IP, and
// answer-presence checks. Survey answers are never judged for correctness.
type Heuristic struct{}

// Score implements Scorer.
func (Heuristic) Score(ctx context.Context, sig Signals) (int, error) {
	score := 0

	switch {
	case sig.SolveTimeMs <= 0 || sig.SolveTimeMs < 150:
		score += 35 // instant solve
	case sig.SolveTimeMs < 350:
		score += 15
	case sig.SolveTimeMs > 15000:
		score += 5 // stuck or automated, mild signal
	}

	if len(sig.UserAgent) < 10 {
		score += 15
	}
	ua := strings.ToLower(sig.UserAgent)
	if strings.Contains(ua, "headless") {
		score += 30
	}
	if strings.Contains(ua, "bot") || strings.Contains(ua, "spider") || strings.Contains(ua, "crawler") {
		score += 40
	}

	if sig.IP == "" || sig.IP == "0.0.0.0" {
		score += 10
	}
	if sig.IP == "127.0.0.1" || sig.IP == "::1" {
		score -= 20
	}

	if !sig.AnswerPresent {
		score += 10
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, nil
}
