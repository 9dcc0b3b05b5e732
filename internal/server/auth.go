package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lpforge/lpforge/internal/auth"
	"github.com/lpforge/lpforge/internal/store"
)

// authMiddleware requires a valid Bearer token and stores the caller's user
// id on the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := auth.ParseToken(s.cfg.JWTSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		// The token may outlive the account
		if _, err := s.store.GetUser(r.Context(), userID); err != nil {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

type authzResult int

const (
	authzAllowed authzResult = iota
	authzForbidden
	authzNotFound
)

// authorizeLP is the single ownership check used by every protected
// handler: the acting user must own the landing page.
func (s *Server) authorizeLP(ctx context.Context, lpID, userID string) (authzResult, *store.LandingPage) {
	lp, err := s.store.GetLandingPage(ctx, lpID)
	if errors.Is(err, store.ErrNotFound) {
		return authzNotFound, nil
	}
	if err != nil {
		return authzNotFound, nil
	}
	if lp.UserID != userID {
		return authzForbidden, nil
	}
	return authzAllowed, lp
}

// authorizeComponent resolves a component's owning page and applies the
// same ownership rule.
func (s *Server) authorizeComponent(ctx context.Context, componentID, userID string) (authzResult, *store.Component) {
	c, err := s.store.GetComponent(ctx, componentID)
	if errors.Is(err, store.ErrNotFound) {
		return authzNotFound, nil
	}
	if err != nil {
		return authzNotFound, nil
	}
	res, _ := s.authorizeLP(ctx, c.LPID, userID)
	return res, c
}

// writeAuthz maps a non-allowed authz result to its HTTP response.
func writeAuthz(w http.ResponseWriter, res authzResult) {
	switch res {
	case authzForbidden:
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}
