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

	"github.com/Prachi-Sharma23/creators-platform/internal/api"
	"github.com/Prachi-Sharma23/creators-platform/internal/auth"
	"github.com/Prachi-Sharma23/creators-platform/internal/config"
	"github.com/Prachi-Sharma23/creators-platform/internal/database"
	"github.com/Prachi-Sharma23/creators-platform/internal/logger"
	"github.com/Prachi-Sharma23/creators-platform/internal/metrics"
	"github.com/Prachi-Sharma23/creators-platform/internal/repositories/users"
	"github.com/Prachi-Sharma23/creators-platform/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server exiting")
}

func run(ctx context.Context, cfg *config.Config) error {
	// Set up the credential store
	repo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	codec, err := auth.NewTokenCodec([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		return err
	}
	m := metrics.New(prometheus.NewRegistry())

	userService := services.NewUserService(repo, hasher, codec, m)

	router := api.NewRouter(api.Deps{
		Users:          userService,
		Gate:           auth.NewGate(codec, repo, m),
		Store:          repo,
		Metrics:        m,
		Logger:         log.Logger,
		AllowedOrigins: []string{cfg.ClientURL},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Int("port", cfg.ServerPort).Str("driver", cfg.DBDriver).Dur("token_ttl", cfg.TokenTTL).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore connects to the configured backend and brings its schema up to
// date. The returned func releases the connection.
func openStore(ctx context.Context, cfg *config.Config) (users.Repository, func() error, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := database.NewSQLite(cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := database.Migrate(ctx, db, database.SQLite); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to apply database migrations: %w", err)
		}
		return users.NewSQLRepository(db, database.SQLite), db.Close, nil

	case config.DriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := database.Migrate(ctx, db, database.Postgres); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to apply database migrations: %w", err)
		}
		return users.NewSQLRepository(db, database.Postgres), db.Close, nil

	case config.DriverMongo:
		client, mdb, err := database.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		disconnect := func() error { return client.Disconnect(context.Background()) }
		repo, err := users.NewMongoRepository(ctx, mdb)
		if err != nil {
			_ = disconnect()
			return nil, nil, err
		}
		return repo, disconnect, nil
	}
	return nil, nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}
