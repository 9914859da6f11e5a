// Command api starts the Cartify backend: account lifecycle with two-step
// login and product catalog, backed by PostgreSQL and Redis.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/FilipeAphrody/cartify/internal/config"
	delivery "github.com/FilipeAphrody/cartify/internal/delivery/http"
	"github.com/FilipeAphrody/cartify/internal/mail"
	"github.com/FilipeAphrody/cartify/internal/media"
	"github.com/FilipeAphrody/cartify/internal/migrate"
	"github.com/FilipeAphrody/cartify/internal/repository"
	"github.com/FilipeAphrody/cartify/internal/usecase"

	_ "github.com/lib/pq" // Postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Infrastructure: explicit init before serving, torn down on shutdown.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("opening postgres", zap.Error(err))
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("pinging postgres", zap.Error(err))
	}

	if err := migrate.Up(ctx, db); err != nil {
		logger.Fatal("running migrations", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("pinging redis", zap.Error(err))
	}

	// Repositories and collaborators.
	userRepo := repository.NewPostgresUserRepo(db)
	productRepo := repository.NewPostgresProductRepo(db)
	secrets := repository.NewRedisSecretStore(rdb)
	mailer := mail.NewSMTPMailer(cfg.SMTP, logger)
	mediaStore := media.NewCloudinaryStore(cfg.Cloudinary, nil, logger)

	// Business logic.
	limiter := usecase.NewRateLimiter(secrets)
	authUsecase := usecase.NewAuthUsecase(userRepo, secrets, limiter, mailer, logger, usecase.AuthConfig{
		AccessSecret:    cfg.AccessSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		FrontendURL:     cfg.FrontendURL,
	})
	productUsecase := usecase.NewProductUsecase(productRepo, mediaStore, logger)

	// HTTP framework and global middlewares.
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = delivery.NewErrorHandler(logger, cfg.IsProduction())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowCredentials: true,
	}))
	e.Use(middleware.Secure())

	// Delivery handlers.
	requireAuth := delivery.RequireAuth(cfg.AccessSecret, userRepo)
	cookie := delivery.CookieConfig{
		Name:   cfg.RefreshCookieName,
		TTL:    cfg.RefreshTokenTTL,
		Secure: cfg.IsProduction(),
	}

	userGroup := e.Group("/api/v1/user")
	delivery.NewAuthHandler(userGroup, authUsecase, cookie, cfg.AccessSecret)
	delivery.NewUserHandler(userGroup, authUsecase, requireAuth)
	delivery.NewMFAHandler(userGroup, authUsecase, requireAuth)

	productGroup := e.Group("/api/v1/product")
	delivery.NewProductHandler(productGroup, productUsecase, requireAuth)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Serve until interrupted, then drain gracefully.
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("starting server", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
