package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/nft-voting-api/internal/application/voting"
	"github.com/nft-voting-api/internal/transport/http/middleware"
)

// AdminHandler serves admin-only reporting.
type AdminHandler struct {
	votes voting.Service
	now   func() time.Time
}

func NewAdminHandler(votes voting.Service, now func() time.Time) *AdminHandler {
	if now == nil {
		now = time.Now
	}
	return &AdminHandler{votes: votes, now: now}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.votes.Stats(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	by := claims.Email
	if by == "" {
		by = claims.UserID
	}

	now := h.now()
	var buf bytes.Buffer
	if err := h.votes.ExportCSV(r.Context(), &buf, by, now); err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+voting.ExportFilename(now)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
