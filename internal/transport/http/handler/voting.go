package handler

import (
	"net/http"
	"strings"

	"github.com/nft-voting-api/internal/application/eligibility"
	"github.com/nft-voting-api/internal/application/user"
	"github.com/nft-voting-api/internal/application/voting"
	"github.com/nft-voting-api/internal/domain"
	"github.com/nft-voting-api/internal/pkg/metrics"
)

type castVoteRequest struct {
	OptionID string `json:"optionId"`
	UserID   string `json:"userId"`
}

// VotingHandler serves vote casting and public results.
type VotingHandler struct {
	users       user.Service
	eligibility eligibility.Service
	votes       voting.Service
	metrics     *metrics.Metrics
}

func NewVotingHandler(users user.Service, elig eligibility.Service, votes voting.Service, m *metrics.Metrics) *VotingHandler {
	return &VotingHandler{users: users, eligibility: elig, votes: votes, metrics: m}
}

// CastVote runs the fast already-voted check, re-verifies ownership, then
// records the vote. The ledger's own duplicate check closes the window
// between the first check and the write.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	var req castVoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.OptionID = strings.TrimSpace(req.OptionID)
	if req.OptionID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "optionId and userId are required")
		return
	}
	userID, ok := actingUser(w, r, req.UserID)
	if !ok {
		return
	}

	ctx := r.Context()
	u, err := h.users.Get(ctx, userID)
	if err != nil {
		httpError(w, err)
		return
	}
	voted, err := h.votes.HasVoted(ctx, u.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	if voted {
		h.metrics.VoteRejected(voting.RejectDuplicate)
		httpError(w, domain.ErrDuplicateVote)
		return
	}
	if res := h.eligibility.Check(ctx, u); !res.Eligible {
		h.metrics.VoteRejected(voting.RejectNotEligible)
		httpError(w, domain.ErrNotEligible)
		return
	}
	if _, err := h.votes.CastVote(ctx, u.UserID, req.OptionID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true, Message: "vote recorded"})
}

func (h *VotingHandler) Results(w http.ResponseWriter, r *http.Request) {
	results, total, err := h.votes.Results(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultsEnvelope{Success: true, Results: results, TotalVotes: total})
}
