package handler

import (
	"errors"
	"net/http"

	"github.com/nft-voting-api/internal/application/eligibility"
	"github.com/nft-voting-api/internal/application/user"
	"github.com/nft-voting-api/internal/application/voting"
	"github.com/nft-voting-api/internal/domain"
	"github.com/nft-voting-api/internal/transport/http/middleware"
)

type userIDRequest struct {
	UserID string `json:"userId"`
}

// NFTHandler reports whether the caller may vote.
type NFTHandler struct {
	users       user.Service
	eligibility eligibility.Service
	votes       voting.Service
}

func NewNFTHandler(users user.Service, elig eligibility.Service, votes voting.Service) *NFTHandler {
	return &NFTHandler{users: users, eligibility: elig, votes: votes}
}

func (h *NFTHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	var req userIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID, ok := actingUser(w, r, req.UserID)
	if !ok {
		return
	}

	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	res := h.eligibility.Check(r.Context(), u)

	env := EligibilityEnvelope{Eligible: res.Eligible, NFTData: res, User: toSafeUser(u)}
	if res.Eligible {
		v, err := h.votes.UserVote(r.Context(), u.UserID)
		switch {
		case err == nil:
			env.HasVoted = true
			env.VotedOption = v.OptionID
		case !errors.Is(err, domain.ErrNotFound):
			httpError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, env)
}

// actingUser resolves the user a request acts for. A body userId naming
// someone other than the token holder is refused with 403.
func actingUser(w http.ResponseWriter, r *http.Request, bodyUserID string) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	if bodyUserID != "" && bodyUserID != claims.UserID {
		writeError(w, http.StatusForbidden, "cannot act for another user")
		return "", false
	}
	return claims.UserID, true
}
