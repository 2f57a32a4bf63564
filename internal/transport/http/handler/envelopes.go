package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nft-voting-api/internal/domain"
)

const maxBodyBytes = 1 << 20

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SuccessEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// AuthEnvelope wraps login responses.
type AuthEnvelope struct {
	Success bool      `json:"success"`
	Token   string    `json:"token"`
	User    *SafeUser `json:"user"`
}

// SafeUser is the public view of a user.
type SafeUser struct {
	ID            string            `json:"id"`
	Email         string            `json:"email,omitempty"`
	WalletAddress string            `json:"walletAddress,omitempty"`
	AuthMethod    domain.AuthMethod `json:"authMethod,omitempty"`
}

func toSafeUser(u *domain.User) *SafeUser {
	if u == nil {
		return nil
	}
	return &SafeUser{ID: u.UserID, Email: u.Email, WalletAddress: u.WalletAddress, AuthMethod: u.AuthMethod}
}

type EligibilityEnvelope struct {
	Eligible    bool                      `json:"eligible"`
	NFTData     *domain.EligibilityResult `json:"nftData"`
	HasVoted    bool                      `json:"hasVoted"`
	VotedOption string                    `json:"votedOption,omitempty"`
	User        *SafeUser                 `json:"user"`
}

type ResultsEnvelope struct {
	Success    bool                  `json:"success"`
	Results    []domain.OptionResult `json:"results"`
	TotalVotes int                   `json:"totalVotes"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// httpError maps a service error onto a status code and a fixed client
// message. Only InputError carries its own text; unrecognised errors are
// logged and reported as a generic 500.
func httpError(w http.ResponseWriter, err error) {
	var inputErr *domain.InputError
	switch {
	case errors.Is(err, domain.ErrDuplicateVote):
		writeError(w, http.StatusBadRequest, "already voted")
	case errors.As(err, &inputErr):
		writeError(w, http.StatusBadRequest, inputErr.Reason)
	case errors.Is(err, domain.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, "invalid or expired code")
	case errors.Is(err, domain.ErrInvalidOption):
		writeError(w, http.StatusBadRequest, "invalid voting option")
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrNotEligible):
		writeError(w, http.StatusForbidden, "nft ownership not confirmed")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
