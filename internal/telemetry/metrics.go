// Package telemetry records service-level metrics for challenge traffic.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric outcome labels shared by completions and token redemptions.
const (
	OutcomeOK           = "ok"
	OutcomeInvalidProof = "invalid_proof"
	OutcomeTooFast      = "too_fast"
	OutcomeHighRisk     = "high_risk"
	OutcomeBadAnswer    = "bad_answer"
	OutcomeExpired      = "expired"
	OutcomeReplay       = "replay"
	OutcomeError        = "error"
)

// Metrics holds the challenge traffic counters. A nil *Metrics is valid and
// records nothing, so callers never need to branch.
type Metrics struct {
	challengesCreated metric.Int64Counter
	completions       metric.Int64Counter
	tokensConsumed    metric.Int64Counter
}

// NewMetrics registers the counters on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	created, err := meter.Int64Counter("captcha.challenges.created",
		metric.WithDescription("Challenges created"))
	if err != nil {
		return nil, err
	}
	completions, err := meter.Int64Counter("captcha.completions",
		metric.WithDescription("Challenge completion attempts by outcome"))
	if err != nil {
		return nil, err
	}
	consumed, err := meter.Int64Counter("captcha.tokens.consumed",
		metric.WithDescription("Proof token redemption attempts by outcome"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		challengesCreated: created,
		completions:       completions,
		tokensConsumed:    consumed,
	}, nil
}

// ChallengeCreated counts one created challenge for the client.
func (m *Metrics) ChallengeCreated(ctx context.Context, clientID string) {
	if m == nil {
		return
	}
	m.challengesCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("client_id", clientID)))
}

// Completion counts one completion attempt with its outcome label.
func (m *Metrics) Completion(ctx context.Context, clientID, outcome string) {
	if m == nil {
		return
	}
	m.completions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.String("outcome", outcome),
	))
}

// TokenConsumed counts one redemption attempt with its outcome label.
func (m *Metrics) TokenConsumed(ctx context.Context, clientID, outcome string) {
	if m == nil {
		return
	}
	m.tokensConsumed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.String("outcome", outcome),
	))
}
