package jwtinfra

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nft-voting-api/internal/domain"
)

// Claims holds the JWT payload fields.
type Claims struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`
	Role          string `json:"role"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 session tokens. Tokens are not stored;
// they end only by expiring.
type Provider struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

type Option func(*Provider)

// WithClock overrides the time source for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(secret string, expiry time.Duration, opts ...Option) *Provider {
	p := &Provider{secret: []byte(secret), expiry: expiry, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Provider) Sign(u *domain.User) (string, error) {
	now := p.now()
	claims := Claims{
		UserID:        u.UserID,
		Email:         u.Email,
		WalletAddress: u.WalletAddress,
		Role:          u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the token's claims. Any failure (malformed, bad signature,
// wrong algorithm, expired) yields an error wrapping domain.ErrUnauthorized.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		slog.Debug("token rejected", "err", err)
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		slog.Debug("token rejected", "err", "invalid claims")
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrUnauthorized)
	}
	return claims, nil
}
