package domain

import "context"

// UserRepository stores users with unique-by-convention email and wallet lookups.
// Get methods return an error wrapping ErrNotFound when no user matches.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Get(ctx context.Context, userID string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByWallet(ctx context.Context, address string) (*User, error)
	Count(ctx context.Context) (int, error)
}

// VoteRepository is the vote ledger store.
//
// PutIfAbsent is the single atomic check-and-set for the one-vote-per-user
// rule: it returns ErrDuplicateVote when the user already has a vote.
type VoteRepository interface {
	PutIfAbsent(ctx context.Context, v *Vote) error
	GetByUser(ctx context.Context, userID string) (*Vote, error)
	HasVoted(ctx context.Context, userID string) (bool, error)
	CountByOption(ctx context.Context) (map[string]int, error)
	Count(ctx context.Context) (int, error)
}
