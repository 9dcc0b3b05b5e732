package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lpforge/lpforge/internal/config"
	"github.com/lpforge/lpforge/internal/store"
	"github.com/lpforge/lpforge/internal/track"
)

type Server struct {
	store     store.Store
	log       *zap.Logger
	cfg       config.Config
	queue     *track.Queue
	router    chi.Router
	startTime time.Time
	rnd       func() float64
}

func New(st store.Store, cfg config.Config, log *zap.Logger, queue *track.Queue) *Server {
	srv := &Server{
		store:     st,
		log:       log,
		cfg:       cfg,
		queue:     queue,
		startTime: time.Now(),
		rnd:       rand.Float64,
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)

	// Public endpoints
	r.Get("/health", s.handleHealth)
	r.Get("/lp.js", s.handleTrackerJS)
	r.Get("/api/public/lp/{lpID}", s.handlePublicLP)

	r.Route("/api/tracking", func(r chi.Router) {
		r.Use(corsMiddleware)
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		r.Post("/pageview", s.handleTrackPageview)
		r.Post("/component", s.handleTrackComponent)
		r.Post("/conversion", s.handleTrackConversion)
		r.Post("/scroll", s.handleTrackScroll)
		r.Post("/event", s.handleTrackEvent)
		r.Post("/exit", s.handleTrackExit)

		// Aggregate reads (protected)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/stats", s.handleLPStats)
			r.Get("/stats/components", s.handleComponentStats)
			r.Get("/stats/report/{componentID}", s.handleTestReport)
		})
	})

	r.Post("/api/auth/login", s.handleLogin)

	// Dashboard CRUD (protected)
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/api/lps", s.handleListLPs)
		r.Post("/api/lps", s.handleCreateLP)
		r.Get("/api/lps/{lpID}", s.handleGetLP)
		r.Put("/api/lps/{lpID}", s.handleUpdateLP)
		r.Delete("/api/lps/{lpID}", s.handleDeleteLP)
		r.Get("/api/lps/{lpID}/components", s.handleListComponents)
		r.Post("/api/lps/{lpID}/components", s.handleCreateComponent)
		r.Get("/api/components/{componentID}/variants", s.handleListVariants)
		r.Put("/api/variants/{variantID}", s.handleUpdateVariant)

		r.Get("/api/members", s.handleListMembers)
		r.Post("/api/members", s.handleCreateMember)
		r.Delete("/api/members/{memberID}", s.handleDeleteMember)

		r.Post("/api/tests/{componentID}/apply-winner", s.handleApplyWinner)
	})

	s.router = r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully and drains the tracking queue.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.HTTPPort),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.Int("port", s.cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("http shutdown failed", zap.Error(err))
	}
	if err := s.queue.Close(shutdownCtx); err != nil {
		s.log.Warn("track queue drain interrupted", zap.Error(err))
	}
	return nil
}

type HealthResponse struct {
	Status        string `json:"status"`
	PagesCount    int    `json:"pages_count"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var pages int
	if lps, err := s.store.ListLandingPages(ctx, ""); err == nil {
		pages = len(lps)
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		PagesCount:    pages,
		DBSizeBytes:   s.store.SizeBytes(ctx),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}
