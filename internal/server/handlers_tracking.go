package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lpforge/lpforge/internal/experiment"
	"github.com/lpforge/lpforge/internal/store"
)

// Conventional event types. The API boundary accepts free-form types via
// /event; these are the ones with side effects.
const (
	eventPageview      = "pageview"
	eventComponentView = "component_view"
	eventClick         = "click"
	eventConversion    = "conversion"
	eventScrollDepth   = "scroll_depth"
	eventExit          = "exit"
)

type trackRequest struct {
	LPID        string          `json:"lpId"`
	SessionID   string          `json:"sessionId"`
	EventType   string          `json:"eventType,omitempty"`
	ComponentID string          `json:"componentId,omitempty"`
	Variant     string          `json:"variant,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Timestamp   *time.Time      `json:"timestamp,omitempty"`
}

func (s *Server) handleTrackPageview(w http.ResponseWriter, r *http.Request) {
	s.track(w, r, eventPageview, false)
}

// handleTrackComponent records component-level events: views by default,
// clicks when eventType says so.
func (s *Server) handleTrackComponent(w http.ResponseWriter, r *http.Request) {
	s.track(w, r, eventComponentView, false)
}

func (s *Server) handleTrackConversion(w http.ResponseWriter, r *http.Request) {
	s.track(w, r, eventConversion, false)
}

func (s *Server) handleTrackScroll(w http.ResponseWriter, r *http.Request) {
	s.track(w, r, eventScrollDepth, false)
}

// handleTrackEvent accepts a caller-supplied event type.
func (s *Server) handleTrackEvent(w http.ResponseWriter, r *http.Request) {
	s.track(w, r, "", false)
}

// handleTrackExit is sendBeacon-delivered: the browser discards the
// response and must never see a failure, so every path returns 200.
func (s *Server) handleTrackExit(w http.ResponseWriter, r *http.Request) {
	s.track(w, r, eventExit, true)
}

func (s *Server) track(w http.ResponseWriter, r *http.Request, defaultType string, beacon bool) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if beacon {
			writeSuccess(w)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.LPID == "" || req.SessionID == "" {
		if beacon {
			writeSuccess(w)
			return
		}
		writeError(w, http.StatusBadRequest, "lpId and sessionId are required")
		return
	}

	eventType := req.EventType
	if eventType == "" {
		eventType = defaultType
	}
	if eventType == "" {
		if beacon {
			writeSuccess(w)
			return
		}
		writeError(w, http.StatusBadRequest, "eventType is required")
		return
	}
	// Client shorthand for component views
	if eventType == "view" {
		eventType = eventComponentView
	}

	ctx := r.Context()

	if eventType == eventPageview {
		s.ensureSession(ctx, &req, r.UserAgent(), r.Referer())
	}

	event := &store.Event{
		SessionID:   req.SessionID,
		LPID:        req.LPID,
		ComponentID: req.ComponentID,
		Variant:     req.Variant,
		EventType:   eventType,
		Payload:     req.Data,
	}
	if req.Timestamp != nil {
		event.CreatedAt = *req.Timestamp
	}

	// The raw event write is the durability boundary; everything after it
	// is best-effort derived state.
	if err := s.store.RecordEvent(ctx, event); err != nil {
		s.log.Error("failed to record event",
			zap.String("event_type", eventType),
			zap.String("lp_id", req.LPID),
			zap.Error(err),
		)
		if beacon {
			writeSuccess(w)
			return
		}
		writeErrorDetails(w, http.StatusInternalServerError, "failed to record event", err.Error())
		return
	}

	s.postProcess(ctx, eventType, &req)
	writeSuccess(w)
}

// ensureSession creates the server-side session record on the first
// pageview if the cookie was minted by the client tracker.
func (s *Server) ensureSession(ctx context.Context, req *trackRequest, userAgent, referrer string) {
	_, err := s.store.GetSession(ctx, req.SessionID)
	if err == nil {
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.log.Warn("session lookup failed", zap.String("session_id", req.SessionID), zap.Error(err))
		return
	}

	device, browser := sniffDevice(userAgent)
	sess := &store.Session{
		ID:         req.SessionID,
		LPID:       req.LPID,
		StartedAt:  time.Now(),
		LastSeenAt: time.Now(),
		Device:     device,
		Browser:    browser,
		Referrer:   referrer,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		s.log.Error("failed to create session", zap.String("session_id", req.SessionID), zap.Error(err))
	}
}

// postProcess applies the per-event-type side effects. Counter updates run
// inline but never fail the request; session touches and significance
// recomputation go to the bounded background queue.
func (s *Server) postProcess(ctx context.Context, eventType string, req *trackRequest) {
	switch eventType {
	case eventComponentView:
		s.bumpCounter(ctx, req, store.CounterViews)

	case eventClick:
		s.bumpCounter(ctx, req, store.CounterClicks)

	case eventConversion:
		s.bumpCounter(ctx, req, store.CounterConversions)

		sessionID := req.SessionID
		conversionType := payloadString(req.Data, "type")
		componentID := req.ComponentID
		s.queue.Submit("conversion", func(ctx context.Context) error {
			if err := s.store.MarkConverted(ctx, sessionID, conversionType); err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("mark converted: %w", err)
			}
			if componentID == "" {
				return nil
			}
			if _, err := experiment.Recompute(ctx, s.store, componentID); err != nil {
				return fmt.Errorf("recompute significance: %w", err)
			}
			return nil
		})

	case eventScrollDepth:
		sessionID := req.SessionID
		depth := payloadInt(req.Data, "depth")
		s.queue.Submit("scroll", func(ctx context.Context) error {
			err := s.store.TouchSession(ctx, sessionID, time.Now(), 0, depth)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		})

	case eventExit:
		sessionID := req.SessionID
		duration := payloadInt(req.Data, "timeOnPage")
		depth := payloadInt(req.Data, "scrollDepth")
		s.queue.Submit("exit", func(ctx context.Context) error {
			err := s.store.TouchSession(ctx, sessionID, time.Now(), duration, depth)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		})
	}
}

func (s *Server) bumpCounter(ctx context.Context, req *trackRequest, counter string) {
	if req.ComponentID == "" || (req.Variant != store.VariantA && req.Variant != store.VariantB) {
		return
	}
	if err := s.store.IncrementStat(ctx, req.ComponentID, req.Variant, counter); err != nil {
		s.log.Error("failed to update component stats",
			zap.String("component_id", req.ComponentID),
			zap.String("variant", req.Variant),
			zap.String("counter", counter),
			zap.Error(err),
		)
	}
}

func payloadString(data json.RawMessage, key string) string {
	if len(data) == 0 {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(data json.RawMessage, key string) int {
	if len(data) == 0 {
		return 0
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return 0
	}
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}
