package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lpforge/lpforge/internal/assign"
	"github.com/lpforge/lpforge/internal/store"
)

const sessionCookieName = "lp_session"

// sessionCookie is the browser-side mirror of the session record.
type sessionCookie struct {
	ID        string            `json:"id"`
	StartedAt time.Time         `json:"startedAt"`
	Variants  map[string]string `json:"variants"`
	Source    string            `json:"source,omitempty"`
	Campaign  string            `json:"campaign,omitempty"`
	Device    deviceInfo        `json:"device"`
}

type deviceInfo struct {
	Type    string `json:"type"`
	Browser string `json:"browser"`
}

// readSessionCookie returns nil for a missing or malformed cookie; both are
// treated as "no session".
func readSessionCookie(r *http.Request) *sessionCookie {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	var sc sessionCookie
	if err := json.Unmarshal([]byte(raw), &sc); err != nil || sc.ID == "" {
		return nil
	}
	if sc.Variants == nil {
		sc.Variants = map[string]string{}
	}
	return &sc
}

func (s *Server) writeSessionCookie(w http.ResponseWriter, sc *sessionCookie) {
	raw, err := json.Marshal(sc)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    url.QueryEscape(string(raw)),
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(s.cfg.SessionCookieTTL / time.Second),
		SameSite: http.SameSiteLaxMode,
	})
}

type publicComponent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Position int    `json:"position"`
	Variant  string `json:"variant"`
	HTML     string `json:"html"`
	CSS      string `json:"css,omitempty"`
	JS       string `json:"js,omitempty"`
}

type publicLPResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Slug       string            `json:"slug,omitempty"`
	SessionID  string            `json:"sessionId"`
	Components []publicComponent `json:"components"`
}

// handlePublicLP serves a landing page with one variant chosen per
// component, pinning the choice to the visitor's session.
func (s *Server) handlePublicLP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lpID := chi.URLParam(r, "lpID")

	lp, err := s.store.GetLandingPage(ctx, lpID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "landing page not found")
		return
	}
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to load landing page", err.Error())
		return
	}

	components, err := s.store.ListComponents(ctx, lpID)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to load components", err.Error())
		return
	}

	cookie := readSessionCookie(r)
	fresh := cookie == nil
	if fresh {
		device, browser := sniffDevice(r.UserAgent())
		cookie = &sessionCookie{
			ID:        uuid.NewString(),
			StartedAt: time.Now(),
			Variants:  map[string]string{},
			Source:    r.URL.Query().Get("utm_source"),
			Campaign:  r.URL.Query().Get("utm_campaign"),
			Device:    deviceInfo{Type: device, Browser: browser},
		}
	}

	overrides := assign.ParseOverrides(r.URL.Query())

	changed := false
	resp := publicLPResponse{ID: lp.ID, Name: lp.Name, Slug: lp.Slug, SessionID: cookie.ID}
	for _, c := range components {
		letter, assigned := assign.Choose(cookie.Variants, c.ID, overrides, s.rnd)
		if assigned {
			cookie.Variants[c.ID] = letter
			changed = true
		}

		variant, err := s.store.GetVariantByLetter(ctx, c.ID, letter)
		if errors.Is(err, store.ErrNotFound) {
			// Single-variant component, fall back to control
			variant, err = s.store.GetVariantByLetter(ctx, c.ID, store.VariantA)
		}
		if err != nil {
			s.log.Warn("missing variant content",
				zap.String("component_id", c.ID),
				zap.String("variant", letter),
				zap.Error(err),
			)
			continue
		}

		resp.Components = append(resp.Components, publicComponent{
			ID:       c.ID,
			Type:     c.Type,
			Position: c.Position,
			Variant:  variant.Letter,
			HTML:     variant.HTML,
			CSS:      variant.CSS,
			JS:       variant.JS,
		})
	}

	if fresh {
		sess := &store.Session{
			ID:          cookie.ID,
			LPID:        lp.ID,
			StartedAt:   cookie.StartedAt,
			LastSeenAt:  time.Now(),
			Device:      cookie.Device.Type,
			Browser:     cookie.Device.Browser,
			Referrer:    r.Referer(),
			UTMSource:   cookie.Source,
			UTMCampaign: cookie.Campaign,
			Assignments: cookie.Variants,
		}
		if err := s.store.CreateSession(ctx, sess); err != nil {
			s.log.Error("failed to persist session", zap.String("session_id", cookie.ID), zap.Error(err))
		}
	} else if changed {
		if err := s.store.SaveAssignments(ctx, cookie.ID, cookie.Variants); err != nil {
			s.log.Error("failed to persist assignments", zap.String("session_id", cookie.ID), zap.Error(err))
		}
	}

	if resp.Components == nil {
		resp.Components = []publicComponent{}
	}

	s.writeSessionCookie(w, cookie)
	writeJSON(w, http.StatusOK, resp)
}

func sniffDevice(userAgent string) (device, browser string) {
	ua := strings.ToLower(userAgent)

	device = "desktop"
	if strings.Contains(ua, "mobile") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone") {
		device = "mobile"
	} else if strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") {
		device = "tablet"
	}

	switch {
	case strings.Contains(ua, "edg/"):
		browser = "edge"
	case strings.Contains(ua, "chrome"):
		browser = "chrome"
	case strings.Contains(ua, "firefox"):
		browser = "firefox"
	case strings.Contains(ua, "safari"):
		browser = "safari"
	default:
		browser = "other"
	}
	return device, browser
}
