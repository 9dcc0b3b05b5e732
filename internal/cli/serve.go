package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lpforge/lpforge/internal/server"
	"github.com/lpforge/lpforge/internal/store"
	"github.com/lpforge/lpforge/internal/track"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the lpforge HTTP server.

The server provides:
  - Public landing-page endpoint with per-session variant assignment
  - Tracking endpoints (pageview, component, conversion, scroll, exit)
  - Stats and significance report endpoints
  - Dashboard CRUD API

Example:
  lpforge serve --port 8080`,
	RunE: runServe,
}

func init() {
	defaultPort := 8080
	if p := os.Getenv("LPFORGE_PORT"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			defaultPort = parsed
		}
	}

	serveCmd.Flags().IntVarP(&port, "port", "p", defaultPort, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") || cfg.HTTPPort == 0 {
		cfg.HTTPPort = port
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("no JWT secret configured (set auth.jwt_secret or LPFORGE_JWT_SECRET)")
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	queue := track.NewQueue(cfg.TrackQueueSize, cfg.TrackTaskTimeout, log)
	srv := server.New(s, cfg, log, queue)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}
