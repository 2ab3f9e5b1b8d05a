// Package brokererr defines the broker's well-known error kinds as sentinel
// values. Components wrap them with context via fmt.Errorf("...: %w", Err...)
// rather than introducing a custom error type hierarchy — the teacher's own
// packages propagate errors the same plain way.
package brokererr

import "errors"

var (
	// ErrCircuitOpen: fast-fail, caller falls through to the next cascade
	// tier or returns a control-plane error.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrTransientDependency: remote call failed or timed out; counts
	// toward the breaker; caller retries via fallback tier.
	ErrTransientDependency = errors.New("transient dependency failure")

	// ErrQuotaExceeded: cascade skips a tier.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrRateLimited: API facade rejects with a retry-after hint.
	ErrRateLimited = errors.New("rate limited")

	// ErrSafetyViolation: ProvisioningOrchestrator refuses a transition.
	ErrSafetyViolation = errors.New("safety violation")

	// ErrInvariantViolation: data model constraint broken; fatal for the
	// operation.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrSagaFailed: forward step failed and compensations ran.
	ErrSagaFailed = errors.New("saga failed")

	// ErrAuthorizationDenied: role present but insufficient.
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrAuthenticationRequired: missing/invalid session or missing 2FA.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrNotFound: ordinary resource error.
	ErrNotFound = errors.New("not found")

	// ErrConflict: ordinary resource error.
	ErrConflict = errors.New("conflict")
)
