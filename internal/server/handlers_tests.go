package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lpforge/lpforge/internal/experiment"
	"github.com/lpforge/lpforge/internal/store"
)

type applyWinnerRequest struct {
	VariantID string `json:"variantId"`
}

// handleApplyWinner promotes the decided winner: the losing variant's
// content is overwritten and the test result stamped as applied. Manual and
// one-way.
func (s *Server) handleApplyWinner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	componentID := chi.URLParam(r, "componentID")

	if res, _ := s.authorizeComponent(ctx, componentID, userIDFrom(ctx)); res != authzAllowed {
		writeAuthz(w, res)
		return
	}

	var req applyWinnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.VariantID == "" {
		writeError(w, http.StatusBadRequest, "variantId is required")
		return
	}

	result, err := experiment.ApplyWinner(ctx, s.store, componentID, req.VariantID)
	switch {
	case errors.Is(err, experiment.ErrNoWinner):
		writeError(w, http.StatusBadRequest, "test has no significant winner")
		return
	case errors.Is(err, experiment.ErrWrongVariant):
		writeError(w, http.StatusBadRequest, "variantId does not match the winning variant")
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "variant not found")
		return
	case err != nil:
		writeErrorDetails(w, http.StatusInternalServerError, "failed to apply winner", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":             true,
		"componentId":         result.ComponentID,
		"winningVariant":      result.WinningVariant,
		"appliedToProduction": result.Applied,
		"appliedAt":           result.AppliedAt,
	})
}
