package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nft-voting-api/internal/domain"
	"github.com/nft-voting-api/internal/pkg/id"
)

// Service is the user directory: it resolves login identifiers to users,
// creating them on first sight.
type Service interface {
	FindOrCreateByEmail(ctx context.Context, email string) (*domain.User, error)
	FindOrCreateByWallet(ctx context.Context, address string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Count(ctx context.Context) (int, error)
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByWallet(ctx context.Context, address string) (*domain.User, error)
	Count(ctx context.Context) (int, error)
}

type service struct {
	repo   userStore
	admins map[string]struct{}
	now    func() time.Time
}

type ServiceDeps struct {
	UserRepo    userStore
	AdminEmails []string
	Clock       func() time.Time
}

func NewService(deps ServiceDeps) Service {
	admins := make(map[string]struct{}, len(deps.AdminEmails))
	for _, e := range deps.AdminEmails {
		admins[NormalizeEmail(e)] = struct{}{}
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &service{repo: deps.UserRepo, admins: admins, now: now}
}

// NormalizeEmail trims and lower-cases an address for use as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindOrCreateByEmail returns the user for email. An existing user's role is
// re-derived from the admin allowlist so allowlist edits apply at next login.
func (s *service) FindOrCreateByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email required: %w", domain.ErrBadRequest)
	}
	role := s.roleFor(email)

	u, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role != role {
			u.Role = role
			u.UpdatedAt = s.now().UTC()
			if err := s.repo.Update(ctx, u); err != nil {
				return nil, fmt.Errorf("update role: %w", err)
			}
			slog.Info("user role changed", "user_id", u.UserID, "role", role)
		}
		return u, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	return s.create(ctx, &domain.User{
		Email:      email,
		AuthMethod: domain.AuthMethodEmail,
		Role:       role,
	})
}

func (s *service) FindOrCreateByWallet(ctx context.Context, address string) (*domain.User, error) {
	if address == "" {
		return nil, fmt.Errorf("wallet address required: %w", domain.ErrBadRequest)
	}
	u, err := s.repo.GetByWallet(ctx, address)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.create(ctx, &domain.User{
		WalletAddress: address,
		AuthMethod:    domain.AuthMethodWallet,
		Role:          domain.RoleUser,
	})
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *service) create(ctx context.Context, u *domain.User) (*domain.User, error) {
	now := s.now().UTC()
	u.UserID = id.NewAt(now)
	u.CreatedAt = now
	u.UpdatedAt = now
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	slog.Info("user created", "user_id", u.UserID, "auth_method", u.AuthMethod)
	return u, nil
}

func (s *service) roleFor(email string) string {
	if _, ok := s.admins[email]; ok {
		return domain.RoleAdmin
	}
	return domain.RoleUser
}
