package domain

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a challenge session.
// Sessions move pending -> used | expired | failed exactly once; the three
// non-pending states are terminal.
type Status string

const (
	StatusPending Status = "pending"
	StatusUsed    Status = "used"
	StatusExpired Status = "expired"
	StatusFailed  Status = "failed"
)

// Terminal reports whether no further status transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusUsed || s == StatusExpired || s == StatusFailed
}

// Failure reasons recorded in LastError on a failed transition.
const (
	ReasonPuzzleFailed  = "altcha_failed"
	ReasonTooFast       = "too_fast"
	ReasonHighRisk      = "high_risk"
	ReasonSurveyInvalid = "survey_invalid"
)

// Timings is completion metadata stamped when a session is used or failed.
type Timings struct {
	SolveTimeMs int64  `json:"solve_time_ms"`
	IP          string `json:"ip,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
}

// Session is a challenge session row. SessionID is the opaque external handle
// (unguessable, generated server-side); ID is the internal row identity.
// PuzzleParams and SurveySnapshot are frozen at creation: verification always
// runs against the snapshot, never the live question bank.
type Session struct {
	ID             string
	SessionID      string
	ClientID       string
	Status         Status
	PuzzleParams   json.RawMessage
	SurveySnapshot json.RawMessage
	SurveyAnswer   json.RawMessage // recorded at completion only
	Timings        *Timings
	CreatedAt      time.Time
	ExpiresAt      time.Time
	UsedAt         *time.Time
	TokenIssued    bool
	TokenJti       string // set at most once, on the pending -> used transition
	TokenExpiresAt *time.Time
	TokenUsed      bool
	LastError      string
}
