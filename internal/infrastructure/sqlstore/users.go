package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/nft-voting-api/internal/domain"
	"gorm.io/gorm"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	res := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("user_id = ?", u.UserID).
		Select("*").
		Updates(u)
	if res.Error != nil {
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", u.UserID, domain.ErrNotFound)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepo) GetByWallet(ctx context.Context, address string) (*domain.User, error) {
	return r.first(ctx, "wallet_address = ?", address)
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// first returns the most recently created match so a re-used identifier
// resolves to the latest record.
func (r *UserRepo) first(ctx context.Context, query string, arg string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("created_at DESC").
		Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
