// Package events emits challenge lifecycle events (e.g. to Kafka) for
// downstream analytics and abuse monitoring.
package events

import (
	"context"
	"time"
)

// Event types published on the challenge lifecycle.
const (
	TypeChallengeCreated   = "challenge.created"
	TypeChallengeCompleted = "challenge.completed"
	TypeChallengeFailed    = "challenge.failed"
	TypeTokenConsumed      = "token.consumed"
)

// Event is one challenge lifecycle record. Reason is set on failures only;
// RiskScore is set once scoring has run.
type Event struct {
	Type      string    `json:"type"`
	ClientID  string    `json:"client_id"`
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason,omitempty"`
	RiskScore int       `json:"risk_score,omitempty"`
	At        time.Time `json:"at"`
}

// Producer emits challenge events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call from a goroutine if needed.
	// Returns an error only on write failure; callers typically log and ignore.
	Emit(ctx context.Context, event *Event) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}

// Nop is a Producer that drops everything. Used when no brokers are configured.
type Nop struct{}

func (Nop) Emit(ctx context.Context, event *Event) error { return nil }
func (Nop) Close() error                                 { return nil }
