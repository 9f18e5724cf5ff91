package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"go-contact-api/internal/config"
	"go-contact-api/internal/database"
	"go-contact-api/internal/denylist"
	"go-contact-api/internal/handler"
	"go-contact-api/internal/metrics"
	"go-contact-api/internal/middleware"
	"go-contact-api/internal/repository"
	"go-contact-api/internal/router"
	"go-contact-api/internal/security"
	"go-contact-api/internal/service"
	"go-contact-api/internal/token"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		_ = redisClient.Close()
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("redis connected", "addr", redisOpts.Addr, "db", redisOpts.DB)

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	tx := db.Transactor()

	revoked := denylist.NewRedisDenylist(redisClient, cfg.DenylistPrefix)
	tokens, err := token.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL(), revoked)
	if err != nil {
		_ = redisClient.Close()
		db.Close()
		return nil, fmt.Errorf("failed to initialize token manager: %w", err)
	}

	appMetrics := metrics.New()
	hasher := security.NewBcryptHasher(cfg.BcryptCost)

	authService := service.NewAuthService(userRepo, profileRepo, tx, hasher, tokens)
	authService.SetUniformLoginErrors(cfg.UniformLoginErrors)
	authService.SetRecorder(appMetrics)
	userService := service.NewUserService(userRepo, profileRepo, tx, hasher)

	if cfg.SeedDefaultUsers {
		if err := userService.SeedDefaults(ctx, cfg.SeedDefaultPassword); err != nil {
			_ = redisClient.Close()
			db.Close()
			return nil, fmt.Errorf("failed to seed default users: %w", err)
		}
	}

	authMiddleware := middleware.NewAuthMiddleware(authService)
	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth: handler.NewAuthHandler(authService),
		User: handler.NewUserHandler(userService),
		Docs: handler.NewDocsHandler(),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": handler.PingFunc(db.Health),
			"redis":    revoked,
		}),
	}, appMetrics)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		cleanupFuncs: []func(){
			func() {
				if err := redisClient.Close(); err != nil {
					slog.Warn("redis close failed", "error", err)
				}
			},
			func() {
				db.Close()
			},
		},
	}, nil
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		a.cleanup()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-stop:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Drain in-flight requests before closing their dependencies.
	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}
}
