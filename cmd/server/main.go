package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/labstack/echo/v4"

	"usermgmt/docs"
	"usermgmt/internal/auth"
	"usermgmt/internal/cache"
	"usermgmt/internal/config"
	"usermgmt/internal/db"
	"usermgmt/internal/handler"
	"usermgmt/internal/logging"
	"usermgmt/internal/repository"
	"usermgmt/internal/router"
	"usermgmt/internal/service"
)

// @title Account Management API
// @version 1.0
// @description Account registration and administration with HTTP Basic authentication.
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.basic BasicAuth
func main() {
	cfg := config.Load()
	log := logging.NewJSON(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	gormDB, err := db.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, sqlDB); err != nil {
			return err
		}
		log.Info(ctx, "database migrations applied")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(gormDB)

	// Initialize services
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	authService, err := service.NewAuthService(accountRepo, hasher, log)
	if err != nil {
		return err
	}
	accountService := service.NewAccountService(accountRepo, hasher, cacheClient, cfg.AccountCacheTTL, log)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountService)
	healthHandler := handler.NewHealthHandler(accountRepo, cacheClient, log)
	authMiddleware := handler.NewAuthMiddleware(authService)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}

	e := echo.New()
	e.HidePort = true
	router.Register(e, log, accountHandler, healthHandler, authMiddleware)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "server listening", "port", cfg.ServerPort, "swagger", "/swagger/index.html")
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
