package domain

import (
	"context"
	"time"
)

// VerificationCode is a pending one-time login code.
// PK: email. ExpiresAt is the DynamoDB TTL attribute and is rounded up to
// the next second; ExpiresAtMs is the exact expiry checked on verify.
type VerificationCode struct {
	Email       string `json:"email" dynamodbav:"email"`
	Code        string `json:"code" dynamodbav:"code"`
	ExpiresAt   int64  `json:"expires_at" dynamodbav:"expires_at"`       // TTL (Unix seconds)
	ExpiresAtMs int64  `json:"expires_at_ms" dynamodbav:"expires_at_ms"` // Unix milliseconds
}

// NewVerificationCode builds a code that stops verifying at expiresAt.
func NewVerificationCode(email, code string, expiresAt time.Time) VerificationCode {
	ttl := expiresAt.Unix()
	if expiresAt.Truncate(time.Second) != expiresAt {
		ttl++
	}
	return VerificationCode{
		Email:       email,
		Code:        code,
		ExpiresAt:   ttl,
		ExpiresAtMs: expiresAt.UnixMilli(),
	}
}

// Expired reports whether the code is at or past its expiry at now.
func (v *VerificationCode) Expired(now time.Time) bool {
	return now.UnixMilli() >= v.ExpiresAtMs
}

// CodeStore issues and consumes one-time login codes keyed by email.
//
// Issue replaces any pending code for the email. Verify returns true exactly
// once for a matching, unexpired code and evicts it; a mismatched candidate
// leaves the pending code in place.
type CodeStore interface {
	Issue(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, candidate string) (bool, error)
}
