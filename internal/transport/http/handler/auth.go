package handler

import (
	"net/http"

	"github.com/nft-voting-api/internal/application/auth"
	"github.com/nft-voting-api/internal/application/user"
	"github.com/nft-voting-api/internal/transport/http/middleware"
)

// AuthHandler serves the login endpoints and token introspection.
type AuthHandler struct {
	auth  auth.Service
	users user.Service
}

func NewAuthHandler(authSvc auth.Service, users user.Service) *AuthHandler {
	return &AuthHandler{auth: authSvc, users: users}
}

func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req auth.SendCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.auth.SendCode(r.Context(), req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true, Message: "verification code sent"})
}

func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, u, err := h.auth.VerifyCode(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Success: true, Token: token, User: toSafeUser(u)})
}

func (h *AuthHandler) WalletConnect(w http.ResponseWriter, r *http.Request) {
	var req auth.WalletConnectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, u, err := h.auth.WalletConnect(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Success: true, Token: token, User: toSafeUser(u)})
}

// Verify returns the user behind the bearer token.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSafeUser(u))
}
