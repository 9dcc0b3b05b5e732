package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lpforge/lpforge/internal/auth"
	"github.com/lpforge/lpforge/internal/store"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !auth.CheckPassword(user.PasswordHash, req.Password)) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "login failed", err.Error())
		return
	}

	token, err := auth.IssueToken(s.cfg.JWTSecret, user.ID, user.Email, s.cfg.TokenTTL)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to issue token", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type lpResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug,omitempty"`
	Status    string          `json:"status"`
	Meta      json.RawMessage `json:"meta,omitempty"`
	CreatedAt int64           `json:"createdAt"`
	UpdatedAt int64           `json:"updatedAt"`
}

func toLPResponse(lp *store.LandingPage) lpResponse {
	return lpResponse{
		ID:        lp.ID,
		Name:      lp.Name,
		Slug:      lp.Slug,
		Status:    string(lp.Status),
		Meta:      lp.Meta,
		CreatedAt: lp.CreatedAt.Unix(),
		UpdatedAt: lp.UpdatedAt.Unix(),
	}
}

func (s *Server) handleListLPs(w http.ResponseWriter, r *http.Request) {
	pages, err := s.store.ListLandingPages(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to list pages", err.Error())
		return
	}

	out := make([]lpResponse, 0, len(pages))
	for _, lp := range pages {
		out = append(out, toLPResponse(lp))
	}
	writeJSON(w, http.StatusOK, out)
}

type createLPRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (s *Server) handleCreateLP(w http.ResponseWriter, r *http.Request) {
	var req createLPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	lp, err := s.store.CreateLandingPage(r.Context(), userIDFrom(r.Context()), req.Name, req.Slug)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to create page", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toLPResponse(lp))
}

func (s *Server) handleGetLP(w http.ResponseWriter, r *http.Request) {
	res, lp := s.authorizeLP(r.Context(), chi.URLParam(r, "lpID"), userIDFrom(r.Context()))
	if res != authzAllowed {
		writeAuthz(w, res)
		return
	}
	writeJSON(w, http.StatusOK, toLPResponse(lp))
}

type updateLPRequest struct {
	Name   string          `json:"name"`
	Status string          `json:"status"`
	Meta   json.RawMessage `json:"meta"`
}

func (s *Server) handleUpdateLP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, lp := s.authorizeLP(ctx, chi.URLParam(r, "lpID"), userIDFrom(ctx))
	if res != authzAllowed {
		writeAuthz(w, res)
		return
	}

	var req updateLPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := lp.Name
	if strings.TrimSpace(req.Name) != "" {
		name = req.Name
	}
	status := lp.Status
	if req.Status != "" {
		switch store.LPStatus(req.Status) {
		case store.StatusDraft, store.StatusPublished, store.StatusArchived:
			status = store.LPStatus(req.Status)
		default:
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
	}
	meta := []byte(lp.Meta)
	if len(req.Meta) > 0 {
		meta = req.Meta
	}

	if err := s.store.UpdateLandingPage(ctx, lp.ID, name, status, meta); err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to update page", err.Error())
		return
	}

	updated, err := s.store.GetLandingPage(ctx, lp.ID)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to reload page", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toLPResponse(updated))
}

func (s *Server) handleDeleteLP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, lp := s.authorizeLP(ctx, chi.URLParam(r, "lpID"), userIDFrom(ctx))
	if res != authzAllowed {
		writeAuthz(w, res)
		return
	}
	if err := s.store.DeleteLandingPage(ctx, lp.ID); err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to delete page", err.Error())
		return
	}
	writeSuccess(w)
}

type variantContent struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
}

type createComponentRequest struct {
	Type      string          `json:"type"`
	Position  int             `json:"position"`
	GenParams json.RawMessage `json:"genParams"`
	VariantA  variantContent  `json:"variantA"`
	VariantB  variantContent  `json:"variantB"`
}

// handleCreateComponent creates a component with both variants in one call,
// the way the generation pipeline emits them.
func (s *Server) handleCreateComponent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, lp := s.authorizeLP(ctx, chi.URLParam(r, "lpID"), userIDFrom(ctx))
	if res != authzAllowed {
		writeAuthz(w, res)
		return
	}

	var req createComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}

	component, err := s.store.CreateComponent(ctx, lp.ID, req.Type, req.Position, req.GenParams)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to create component", err.Error())
		return
	}

	va, err := s.store.CreateVariant(ctx, component.ID, store.VariantA, req.VariantA.HTML, req.VariantA.CSS, req.VariantA.JS)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to create variant a", err.Error())
		return
	}
	vb, err := s.store.CreateVariant(ctx, component.ID, store.VariantB, req.VariantB.HTML, req.VariantB.CSS, req.VariantB.JS)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to create variant b", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       component.ID,
		"lpId":     component.LPID,
		"type":     component.Type,
		"position": component.Position,
		"variants": map[string]string{store.VariantA: va.ID, store.VariantB: vb.ID},
	})
}

func (s *Server) handleListComponents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, lp := s.authorizeLP(ctx, chi.URLParam(r, "lpID"), userIDFrom(ctx))
	if res != authzAllowed {
		writeAuthz(w, res)
		return
	}

	components, err := s.store.ListComponents(ctx, lp.ID)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to list components", err.Error())
		return
	}

	out := make([]map[string]any, 0, len(components))
	for _, c := range components {
		out = append(out, map[string]any{
			"id":       c.ID,
			"type":     c.Type,
			"position": c.Position,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListVariants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	componentID := chi.URLParam(r, "componentID")
	if res, _ := s.authorizeComponent(ctx, componentID, userIDFrom(ctx)); res != authzAllowed {
		writeAuthz(w, res)
		return
	}

	variants, err := s.store.ListVariants(ctx, componentID)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to list variants", err.Error())
		return
	}

	out := make([]map[string]any, 0, len(variants))
	for _, v := range variants {
		out = append(out, map[string]any{
			"id":      v.ID,
			"variant": v.Letter,
			"html":    v.HTML,
			"css":     v.CSS,
			"js":      v.JS,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	variantID := chi.URLParam(r, "variantID")

	variant, err := s.store.GetVariant(ctx, variantID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "variant not found")
		return
	}
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to load variant", err.Error())
		return
	}
	if res, _ := s.authorizeComponent(ctx, variant.ComponentID, userIDFrom(ctx)); res != authzAllowed {
		writeAuthz(w, res)
		return
	}

	var req variantContent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.store.UpdateVariantContent(ctx, variantID, req.HTML, req.CSS, req.JS); err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to update variant", err.Error())
		return
	}
	writeSuccess(w)
}

type createMemberRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to list members", err.Error())
		return
	}

	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{
			"id":    u.ID,
			"email": u.Email,
			"name":  u.Name,
			"role":  u.Role,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.requireOwner(w, ctx) {
		return
	}

	var req createMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	role := req.Role
	if role == "" {
		role = "member"
	}

	hash, err := auth.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to hash password", err.Error())
		return
	}

	user, err := s.store.CreateUser(ctx, req.Email, req.Name, hash, role)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to create member", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  user.Role,
	})
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.requireOwner(w, ctx) {
		return
	}

	memberID := chi.URLParam(r, "memberID")
	if memberID == userIDFrom(ctx) {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	err := s.store.DeleteUser(ctx, memberID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to delete member", err.Error())
		return
	}
	writeSuccess(w)
}

func (s *Server) requireOwner(w http.ResponseWriter, ctx context.Context) bool {
	user, err := s.store.GetUser(ctx, userIDFrom(ctx))
	if err != nil || user.Role != "owner" {
		writeError(w, http.StatusForbidden, "owner role required")
		return false
	}
	return true
}
