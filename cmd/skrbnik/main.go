package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/erazemk/skrbnik/internal/backend"
	"github.com/erazemk/skrbnik/internal/config"
	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/logger"
	"github.com/erazemk/skrbnik/internal/session"
	"github.com/erazemk/skrbnik/internal/web"
)

// Secrets generated on first run and kept in the session store.
const (
	cookieSecretName   = "cookie_secret"
	credentialsKeyName = "credentials_key"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := logger.Init(cfg.Debug, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("server error")
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore.Close()

	cookieSecret, err := store.Secret(ctx, cookieSecretName)
	if err != nil {
		return fmt.Errorf("loading cookie secret: %w", err)
	}
	credentialsKey, err := store.Secret(ctx, credentialsKeyName)
	if err != nil {
		return fmt.Errorf("loading credentials key: %w", err)
	}
	box, err := session.NewBox(credentialsKey)
	if err != nil {
		return err
	}

	sessions := session.NewManager(store, box, cfg.Session.TTL)
	purger, err := session.NewPurger(sessions, cfg.Session.PurgeSchedule)
	if err != nil {
		return err
	}

	client, err := backend.New(cfg.API.URL,
		backend.WithTimeout(cfg.API.Timeout),
		backend.WithLoginPath(cfg.API.LoginPath),
	)
	if err != nil {
		return err
	}

	router, err := web.NewRouter(web.Options{
		Backend:      client,
		Sessions:     sessions,
		CookieSecret: cookieSecret,
		CookieSecure: cfg.Session.CookieSecure,
	})
	if err != nil {
		return fmt.Errorf("setting up router: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	purger.Start()
	defer purger.Stop()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
		}
	}()

	log.Info().Str("addr", cfg.Addr).Str("api", client.BaseURL()).Str("store", cfg.Session.Store).Msg("server started")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.Info().Msg("server stopped, closing session store")
	return nil
}

// openStore opens the configured session store and returns it with its
// closer.
func openStore(ctx context.Context, cfg *config.Config) (session.Store, io.Closer, error) {
	switch cfg.Session.Store {
	case config.StoreRedis:
		client, err := session.OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis session store ready")
		return session.NewRedisStore(client, "skrbnik:"), client, nil

	default:
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.EnsureSchema(database); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("ensuring database schema: %w", err)
		}
		log.Info().Str("path", cfg.DBPath).Msg("database ready")
		return session.NewSQLiteStore(database), database, nil
	}
}
