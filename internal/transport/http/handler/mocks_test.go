package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nft-voting-api/internal/application/auth"
	"github.com/nft-voting-api/internal/application/voting"
	"github.com/nft-voting-api/internal/domain"
	jwtinfra "github.com/nft-voting-api/internal/infrastructure/jwt"
	"github.com/nft-voting-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) SendCode(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}
func (m *mockAuthSvc) VerifyCode(ctx context.Context, req auth.VerifyCodeRequest) (string, *domain.User, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(1).(*domain.User)
	return args.String(0), u, args.Error(2)
}
func (m *mockAuthSvc) WalletConnect(ctx context.Context, req auth.WalletConnectRequest) (string, *domain.User, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(1).(*domain.User)
	return args.String(0), u, args.Error(2)
}

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) FindOrCreateByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) FindOrCreateByWallet(ctx context.Context, address string) (*domain.User, error) {
	args := m.Called(ctx, address)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockEligibility struct{ mock.Mock }

func (m *mockEligibility) Check(ctx context.Context, u *domain.User) *domain.EligibilityResult {
	return m.Called(ctx, u).Get(0).(*domain.EligibilityResult)
}

type mockVotingSvc struct{ mock.Mock }

func (m *mockVotingSvc) HasVoted(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}
func (m *mockVotingSvc) CastVote(ctx context.Context, userID, optionID string) (*domain.Vote, error) {
	args := m.Called(ctx, userID, optionID)
	if v, _ := args.Get(0).(*domain.Vote); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVotingSvc) UserVote(ctx context.Context, userID string) (*domain.Vote, error) {
	args := m.Called(ctx, userID)
	if v, _ := args.Get(0).(*domain.Vote); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVotingSvc) Results(ctx context.Context) ([]domain.OptionResult, int, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).([]domain.OptionResult)
	return res, args.Int(1), args.Error(2)
}
func (m *mockVotingSvc) Stats(ctx context.Context) (*voting.Stats, error) {
	args := m.Called(ctx)
	st, _ := args.Get(0).(*voting.Stats)
	return st, args.Error(1)
}
func (m *mockVotingSvc) ExportCSV(ctx context.Context, w io.Writer, exportedBy string, now time.Time) error {
	args := m.Called(ctx, w, exportedBy, now)
	if s := args.String(0); s != "" {
		_, _ = io.WriteString(w, s)
	}
	return args.Error(1)
}

// --- helpers ---

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withClaims(req *http.Request, userID, email, role string) *http.Request {
	ctx := middleware.WithClaims(req.Context(), &jwtinfra.Claims{UserID: userID, Email: email, Role: role})
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func wrapBadRequest(msg string) error {
	return fmt.Errorf("%s: %w", msg, domain.ErrBadRequest)
}
