package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nft-voting-api/internal/domain"
)

// UserRepo is an in-memory user directory with email and wallet indexes.
type UserRepo struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	byEmail  map[string]string
	byWallet map[string]string
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		users:    make(map[string]domain.User),
		byEmail:  make(map[string]string),
		byWallet: make(map[string]string),
	}
}

func (r *UserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(u)
	return nil
}

func (r *UserRepo) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.UserID]; !ok {
		return fmt.Errorf("user %s: %w", u.UserID, domain.ErrNotFound)
	}
	r.putLocked(u)
	return nil
}

func (r *UserRepo) Get(_ context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getLocked(userID)
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("user with email: %w", domain.ErrNotFound)
	}
	return r.getLocked(id)
}

func (r *UserRepo) GetByWallet(_ context.Context, address string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byWallet[address]
	if !ok {
		return nil, fmt.Errorf("user with wallet: %w", domain.ErrNotFound)
	}
	return r.getLocked(id)
}

func (r *UserRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}

func (r *UserRepo) putLocked(u *domain.User) {
	r.users[u.UserID] = *u
	if u.Email != "" {
		r.byEmail[strings.ToLower(u.Email)] = u.UserID
	}
	if u.WalletAddress != "" {
		r.byWallet[u.WalletAddress] = u.UserID
	}
}

func (r *UserRepo) getLocked(userID string) (*domain.User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return &u, nil
}
