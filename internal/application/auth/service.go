package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nft-voting-api/internal/application/user"
	"github.com/nft-voting-api/internal/domain"
	"github.com/nft-voting-api/internal/pkg/cardano"
	"github.com/nft-voting-api/internal/pkg/validate"
)

type SendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,otp"`
}

// WalletConnectRequest carries a wallet identity. Signature is accepted but
// not verified; ownership of the address is taken on trust.
type WalletConnectRequest struct {
	WalletType    string `json:"walletType" validate:"required"`
	WalletAddress string `json:"walletAddress" validate:"required,cardano_address"`
	Signature     string `json:"signature,omitempty"`
}

type Service interface {
	SendCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, req VerifyCodeRequest) (token string, u *domain.User, err error)
	WalletConnect(ctx context.Context, req WalletConnectRequest) (token string, u *domain.User, err error)
}

type codeMailer interface {
	SendCode(ctx context.Context, to, code string) error
}

type jwtSigner interface {
	Sign(u *domain.User) (string, error)
}

type userDirectory interface {
	FindOrCreateByEmail(ctx context.Context, email string) (*domain.User, error)
	FindOrCreateByWallet(ctx context.Context, address string) (*domain.User, error)
}

type service struct {
	codes  domain.CodeStore
	users  userDirectory
	mailer codeMailer
	jwt    jwtSigner
}

type ServiceDeps struct {
	Codes       domain.CodeStore
	Users       userDirectory
	Mailer      codeMailer
	JWTProvider jwtSigner
}

func NewService(deps ServiceDeps) Service {
	return &service{
		codes:  deps.Codes,
		users:  deps.Users,
		mailer: deps.Mailer,
		jwt:    deps.JWTProvider,
	}
}

func (s *service) SendCode(ctx context.Context, email string) error {
	req := SendCodeRequest{Email: user.NormalizeEmail(email)}
	if err := validate.Struct(&req); err != nil {
		return &domain.InputError{Reason: err.Error()}
	}
	email = req.Email
	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return fmt.Errorf("issue code: %w", err)
	}
	if err := s.mailer.SendCode(ctx, email, code); err != nil {
		slog.Error("send login code", "email", email, "err", err)
		return fmt.Errorf("send code: %w", err)
	}
	return nil
}

func (s *service) VerifyCode(ctx context.Context, req VerifyCodeRequest) (string, *domain.User, error) {
	req.Email = user.NormalizeEmail(req.Email)
	req.Code = strings.TrimSpace(req.Code)
	if err := validate.Struct(&req); err != nil {
		return "", nil, &domain.InputError{Reason: err.Error()}
	}
	email := req.Email
	ok, err := s.codes.Verify(ctx, email, req.Code)
	if err != nil {
		return "", nil, fmt.Errorf("verify code: %w", err)
	}
	if !ok {
		return "", nil, domain.ErrInvalidCode
	}

	u, err := s.users.FindOrCreateByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	return s.issue(u)
}

func (s *service) WalletConnect(ctx context.Context, req WalletConnectRequest) (string, *domain.User, error) {
	req.WalletType = strings.TrimSpace(req.WalletType)
	req.WalletAddress = strings.TrimSpace(req.WalletAddress)
	if err := validate.Struct(&req); err != nil {
		return "", nil, &domain.InputError{Reason: err.Error()}
	}
	addr, err := cardano.ParseAddress(req.WalletAddress)
	if err != nil {
		return "", nil, fmt.Errorf("canonical address: %w", err)
	}

	u, err := s.users.FindOrCreateByWallet(ctx, addr)
	if err != nil {
		return "", nil, err
	}
	slog.Info("wallet connected", "user_id", u.UserID, "wallet_type", req.WalletType)
	return s.issue(u)
}

func (s *service) issue(u *domain.User) (string, *domain.User, error) {
	token, err := s.jwt.Sign(u)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, u, nil
}
