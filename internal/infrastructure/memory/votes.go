package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/nft-voting-api/internal/domain"
)

// VoteRepo is an in-memory vote ledger. A single lock covers both the
// per-user check and the write.
type VoteRepo struct {
	mu       sync.RWMutex
	byUser   map[string]domain.Vote
	byOption map[string]int
}

func NewVoteRepo() *VoteRepo {
	return &VoteRepo{
		byUser:   make(map[string]domain.Vote),
		byOption: make(map[string]int),
	}
}

func (r *VoteRepo) PutIfAbsent(_ context.Context, v *domain.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUser[v.UserID]; ok {
		return fmt.Errorf("user %s: %w", v.UserID, domain.ErrDuplicateVote)
	}
	r.byUser[v.UserID] = *v
	r.byOption[v.OptionID]++
	return nil
}

func (r *VoteRepo) GetByUser(_ context.Context, userID string) (*domain.Vote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byUser[userID]
	if !ok {
		return nil, fmt.Errorf("vote for %s: %w", userID, domain.ErrNotFound)
	}
	return &v, nil
}

func (r *VoteRepo) HasVoted(_ context.Context, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[userID]
	return ok, nil
}

func (r *VoteRepo) CountByOption(_ context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.byOption))
	for k, n := range r.byOption {
		out[k] = n
	}
	return out, nil
}

func (r *VoteRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser), nil
}
