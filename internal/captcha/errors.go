package captcha

import "errors"

// Classification errors for challenge operations. All are expected traffic,
// not incidents: handlers map them to statuses, callers branch on them with
// errors.Is. Only ErrStorageFailure is retryable.
var (
	// ErrInvalidTenant is returned when the caller's tenant is missing or unresolvable.
	ErrInvalidTenant = errors.New("invalid tenant")
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTenantMismatch is returned when the session belongs to a different client.
	ErrTenantMismatch = errors.New("session client mismatch")
	// ErrExpired is returned when the session's TTL has elapsed.
	ErrExpired = errors.New("session expired")
	// ErrAlreadyUsed is returned when the session was already completed.
	ErrAlreadyUsed = errors.New("session already used")
	// ErrInvalidState is returned when the session is terminal but not used
	// (a prior attempt failed or it expired).
	ErrInvalidState = errors.New("session not pending")
	// ErrInvalidProof is returned when the proof-of-work check fails.
	ErrInvalidProof = errors.New("invalid puzzle proof")
	// ErrTooFast is returned when the solve time is below the minimum threshold.
	ErrTooFast = errors.New("solved too fast")
	// ErrRejectedRisk is returned when the aggregate risk score is over threshold.
	ErrRejectedRisk = errors.New("risk score over threshold")
	// ErrInvalidAnswer is returned when the survey answer fails shape validation
	// and strict survey mode is on. In the default soft mode a bad answer only
	// raises the risk score.
	ErrInvalidAnswer = errors.New("invalid survey answer")
	// ErrStorageFailure wraps datastore errors. The attempt rolled back and the
	// session is unchanged; callers may retry.
	ErrStorageFailure = errors.New("storage failure")
)
