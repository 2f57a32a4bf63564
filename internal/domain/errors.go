package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Voting errors. Each wraps one of the generic sentinels above so callers can
// match either the specific or the generic condition.
var (
	ErrDuplicateVote = fmt.Errorf("user has already voted: %w", ErrConflict)
	ErrInvalidOption = fmt.Errorf("invalid voting option: %w", ErrBadRequest)
	ErrNotEligible   = fmt.Errorf("nft ownership not confirmed: %w", ErrForbidden)
)

// ErrInvalidCode is returned when a login code does not match or has expired.
var ErrInvalidCode = fmt.Errorf("invalid or expired code: %w", ErrBadRequest)

// InputError reports request fields that failed validation. Reason names only
// the request's own fields and is safe to return to clients.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return e.Reason }

func (e *InputError) Unwrap() error { return ErrBadRequest }
