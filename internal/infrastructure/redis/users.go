package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nft-voting-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

// createUserLua stores a user and claims its email and wallet index entries
// in one step. KEYS: users hash, email index, wallet index.
// ARGV: user id, user json, email, wallet. Returns 0 when an index entry is
// already taken.
const createUserLua = `
if ARGV[3] ~= "" and redis.call("HEXISTS", KEYS[2], ARGV[3]) == 1 then
  return 0
end
if ARGV[4] ~= "" and redis.call("HEXISTS", KEYS[3], ARGV[4]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
if ARGV[3] ~= "" then
  redis.call("HSET", KEYS[2], ARGV[3], ARGV[1])
end
if ARGV[4] ~= "" then
  redis.call("HSET", KEYS[3], ARGV[4], ARGV[1])
end
return 1
`

// updateUserLua overwrites an existing user. Returns 0 when the id is unknown.
const updateUserLua = `
if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`

var (
	usersKey      = keyPrefix + "users"
	userEmailKey  = keyPrefix + "users:email"
	userWalletKey = keyPrefix + "users:wallet"
	userIndexKeys = []string{usersKey, userEmailKey, userWalletKey}
)

// userRecord is the stored form of a user. domain.User hides role and
// updatedAt from JSON responses, so it cannot be stored as is.
type userRecord struct {
	UserID        string            `json:"user_id"`
	Email         string            `json:"email,omitempty"`
	WalletAddress string            `json:"wallet_address,omitempty"`
	AuthMethod    domain.AuthMethod `json:"auth_method"`
	Role          string            `json:"role"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func toRecord(u *domain.User) userRecord {
	return userRecord{
		UserID:        u.UserID,
		Email:         u.Email,
		WalletAddress: u.WalletAddress,
		AuthMethod:    u.AuthMethod,
		Role:          u.Role,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (r userRecord) user() *domain.User {
	return &domain.User{
		UserID:        r.UserID,
		Email:         r.Email,
		WalletAddress: r.WalletAddress,
		AuthMethod:    r.AuthMethod,
		Role:          r.Role,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// UserRepo keeps users as JSON in one hash with email and wallet index hashes
// beside it, so the directory shares the vote ledger's lifetime.
type UserRepo struct {
	rdb    *redis.Client
	create *redis.Script
	update *redis.Script
}

func NewUserRepo(rdb *redis.Client) *UserRepo {
	return &UserRepo{
		rdb:    rdb,
		create: redis.NewScript(createUserLua),
		update: redis.NewScript(updateUserLua),
	}
}

// Create returns an error wrapping ErrConflict when the email or wallet
// already belongs to a user.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	body, err := json.Marshal(toRecord(u))
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	n, err := r.create.Run(ctx, r.rdb, userIndexKeys,
		u.UserID, body, strings.ToLower(u.Email), u.WalletAddress).Int()
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user identity taken: %w", domain.ErrConflict)
	}
	return nil
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	body, err := json.Marshal(toRecord(u))
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	n, err := r.update.Run(ctx, r.rdb, []string{usersKey}, u.UserID, body).Int()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", u.UserID, domain.ErrNotFound)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	raw, err := r.rdb.HGet(ctx, usersKey, userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var rec userRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return rec.user(), nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.lookup(ctx, userEmailKey, strings.ToLower(email), "email")
}

func (r *UserRepo) GetByWallet(ctx context.Context, address string) (*domain.User, error) {
	return r.lookup(ctx, userWalletKey, address, "wallet")
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	n, err := r.rdb.HLen(ctx, usersKey).Result()
	return int(n), err
}

func (r *UserRepo) lookup(ctx context.Context, index, value, what string) (*domain.User, error) {
	id, err := r.rdb.HGet(ctx, index, value).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("user with %s: %w", what, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}
