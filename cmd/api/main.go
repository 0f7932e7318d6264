package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/voxmate/voxmate-go/internal/config"
	"github.com/voxmate/voxmate-go/internal/handler"
	"github.com/voxmate/voxmate-go/internal/mailer"
	"github.com/voxmate/voxmate-go/internal/metrics"
	"github.com/voxmate/voxmate-go/internal/middleware"
	"github.com/voxmate/voxmate-go/internal/service"
	"github.com/voxmate/voxmate-go/internal/session"
	"github.com/voxmate/voxmate-go/internal/turn"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New("voxmate")

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sessionStore, closeSessions, err := openSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()
	sessions := session.NewManager(sessionStore, cfg.SessionSecret, cfg.SessionTTL)

	gw, err := buildGateways(ctx, cfg, logger, m)
	if err != nil {
		return err
	}

	audioStore, err := openAudioStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	orch := turn.New(turn.Config{
		Store:              store,
		Transcriber:        gw.transcriber,
		Completer:          gw.completer,
		Synthesizer:        gw.synthesizer,
		Audio:              audioStore,
		Logger:             logger,
		Metrics:            m,
		CaptureInterval:    cfg.CaptureInterval,
		MaxCaptureDuration: cfg.CaptureMaxDuration,
	})
	defer orch.Close()

	authService := service.NewAuthService(store, mailer.NewLogMailer(logger), cfg.AppBaseURL, cfg.AuthTokenTTL, logger)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	defer limiter.Close()

	router := handler.NewRouter(handler.RouterConfig{
		Auth: handler.NewAuthHandler(authService, sessions, handler.AuthOptions{
			RequireVerification: cfg.RequireTokenVerification,
			ExposeToken:         !cfg.IsProduction(),
			SecureCookie:        cfg.IsProduction(),
		}, logger),
		Personas:      handler.NewPersonaHandler(service.NewPersonaService(store), logger),
		Conversations: handler.NewConversationHandler(service.NewConversationService(store), orch, logger),
		Capture:       handler.NewCaptureHandler(orch, logger),
		AI:            handler.NewAIHandler(orch, gw.transcriber, gw.synthesizer, audioStore, logger),
		Sessions:      sessions,
		RateLimiter:   limiter,
		Metrics:       m,
		CORSOrigins:   cfg.CORSAllowedOrigins,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Turns wait on three upstream calls.
		WriteTimeout: 3*cfg.GatewayTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		janitor(gctx, logger, orch, authService, sessionStore)
		return nil
	})

	return g.Wait()
}

// janitor reaps abandoned captures, spent auth tokens and expired
// in-memory sessions until ctx is done.
func janitor(ctx context.Context, logger *slog.Logger, orch *turn.Orchestrator, auth *service.AuthService, sessions session.Store) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := orch.Reap(now); n > 0 {
				logger.Info("abandoned captures cancelled", "count", n)
			}

			n, err := auth.DeleteExpiredTokens(ctx)
			switch {
			case err != nil && ctx.Err() == nil:
				logger.Warn("auth token cleanup failed", "error", err)
			case n > 0:
				logger.Debug("auth tokens removed", "count", n)
			}

			if mem, ok := sessions.(*session.MemoryStore); ok {
				if n := mem.Sweep(now); n > 0 {
					logger.Debug("sessions expired", "count", n)
				}
			}
		}
	}
}
