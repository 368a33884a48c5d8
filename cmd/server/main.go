package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dennisdiepolder/monti/insights/internal/api"
	"github.com/dennisdiepolder/monti/insights/internal/auth"
	"github.com/dennisdiepolder/monti/insights/internal/config"
	"github.com/dennisdiepolder/monti/insights/internal/ingestion"
	"github.com/dennisdiepolder/monti/insights/internal/session"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Dur("session_ttl", cfg.SessionTTL).
		Bool("skip_auth", cfg.SkipAuth).
		Bool("seed_sample_data", cfg.SeedSampleData).
		Msg("starting insights server")

	if cfg.SkipAuth {
		log.Warn().Msg("SKIP_AUTH is set, every request runs as the dev admin")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

// newServer wires every component and returns the HTTP server together with
// the session manager whose janitor the caller has to run
func newServer(cfg *config.Config, logger zerolog.Logger) (*http.Server, *session.Manager) {
	sessions := session.NewManager(cfg.SessionTTL, cfg.SeedSampleData, logger)
	tokens := auth.NewTokens(cfg.SessionSecret, cfg.SessionTTL)

	router := api.NewRouter(api.Deps{
		Sessions:       sessions,
		Authenticator:  auth.NewAuthenticator(cfg.DemoUsers),
		Tokens:         tokens,
		Gate:           auth.NewGate(tokens, cfg.SkipAuth, logger),
		Processor:      ingestion.NewProcessor(logger),
		AllowedOrigins: cfg.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Health:         healthHandler,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // exports of large views
		IdleTimeout:  60 * time.Second,
	}
	return srv, sessions
}

// run serves until ctx is cancelled, then shuts down gracefully
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	srv, sessions := newServer(cfg, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sessions.Run(gctx, cfg.SessionSweepInterval)
		return nil
	})

	g.Go(func() error {
		logger.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"insights"}`)
}
