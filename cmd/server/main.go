package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"travelog/internal/auth"
	"travelog/internal/cache"
	"travelog/internal/config"
	"travelog/internal/db"
	"travelog/internal/handlers"
	"travelog/internal/logging"
	"travelog/internal/social"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	conn, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		return err
	}
	logging.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	var leaderboard cache.Leaderboard = cache.Nop{}
	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.LeaderboardTTL)
		if err != nil {
			logging.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unavailable, leaderboard cache disabled")
		} else {
			defer rc.Close()
			leaderboard = rc
			logging.Info().Str("addr", cfg.Cache.RedisAddr).Msg("leaderboard cache enabled")
		}
	}

	store := social.NewStore(conn, leaderboard)

	secret := cfg.Security.JWTSecret
	if secret == "" {
		secret, err = ephemeralSecret()
		if err != nil {
			return err
		}
		logging.Warn().Msg("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}
	tokens, err := auth.NewJWTManager(secret, cfg.Security.JWTTimeout)
	if err != nil {
		return err
	}
	sessions := auth.NewSessions(conn, cfg.Security.SessionTTL, cfg.Security.SecureCookies)

	h := handlers.New(store, sessions, tokens)
	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: h.Router(handlers.RouterConfig{
			CORSOrigins:       cfg.Security.CORSOrigins,
			RateLimitRequests: cfg.Security.RateLimitRequests,
			RateLimitWindow:   cfg.Security.RateLimitWindow,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go store.RunReconciler(ctx, cfg.Reconcile.Interval)

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func ephemeralSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
