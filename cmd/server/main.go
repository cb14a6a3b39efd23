package main // HTTP API entry point

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/party-booking/internal/app"
	"github.com/iliyamo/party-booking/internal/config"
	"github.com/iliyamo/party-booking/internal/handler"
	"github.com/iliyamo/party-booking/internal/middleware"
	"github.com/iliyamo/party-booking/internal/queue"
	"github.com/iliyamo/party-booking/internal/router"
	"github.com/iliyamo/party-booking/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.RequireAuth(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run serves until ctx is done or the listener fails.  Backends opened here
// are closed before it returns.
func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer a.Close()

	if cfg.RabbitURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitURL, cfg.AuditDir, logger.Named("audit"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	e := newServer(cfg, a, logger)
	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.Strings("sources", cfg.Sources))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	return serveErr
}

func newServer(cfg config.Config, a *app.App, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	bookings := handler.NewBookingHandler(a.Booking, cfg.Location)
	auth := handler.NewAuthHandler(handler.AuthConfig{
		AdminUser:         cfg.AdminUser,
		AdminPasswordHash: cfg.AdminPasswordHash,
		JWTSecret:         cfg.JWTSecret,
		AccessTTLMin:      cfg.AccessTTLMin,
	})

	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, middleware.NewTokenBucket(cfg.RateLimit, a.Redis, logger.Named("ratelimit")))
	router.RegisterPublic(e, bookings, middleware.NewRedisCache(cfg.Cache, a.Redis, logger.Named("cache")))
	router.RegisterAdmin(e, bookings, cfg.JWTSecret)
	return e
}
