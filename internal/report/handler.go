package report

import (
	"context"
	"errors"
	"log"
	"net/http"

	"examdesk/internal/app/apiresp"
	"examdesk/internal/auth"
)

type summarizer interface {
	SummaryByUser(ctx context.Context, userID string) (*UserSummary, error)
}

type Handler struct {
	svc summarizer
}

func NewHandler(svc summarizer) *Handler {
	return &Handler{svc: svc}
}

// Summary reports the caller's archived quiz performance.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.CurrentSession(r.Context())
	if !ok {
		s = auth.FromRequest(r)
	}
	if s.UserID == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "user id cookie is missing")
		return
	}

	out, err := h.svc.SummaryByUser(r.Context(), s.UserID)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			apiresp.WriteError(w, r, http.StatusServiceUnavailable, err.Error())
			return
		}
		log.Printf("quiz summary for %s: %v", s.UserID, err)
		apiresp.WriteError(w, r, http.StatusInternalServerError, "failed to summarize results")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, out)
}
