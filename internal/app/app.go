// Package app opens the configured backends and assembles the booking
// service shared by the HTTP server and partyctl.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/party-booking/internal/config"
	"github.com/iliyamo/party-booking/internal/database"
	"github.com/iliyamo/party-booking/internal/queue"
	"github.com/iliyamo/party-booking/internal/repository"
	"github.com/iliyamo/party-booking/internal/service"
)

// App holds the wired service and whatever must be closed on exit.
type App struct {
	Config     config.Config
	Log        *zap.Logger
	Redis      *redis.Client // nil when Redis is unreachable
	Catalog    *service.Catalog
	Reconciler *service.Reconciler
	Booking    *service.BookingService

	db *sql.DB
}

// New opens every backend named in cfg.Sources.  A backend that cannot be
// reached at startup is logged and left out; New fails only when none is
// left.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Log: log}

	catalog, err := service.NewCatalog(cfg.Packages)
	if err != nil {
		return nil, fmt.Errorf("package catalogue: %w", err)
	}
	a.Catalog = catalog

	a.Redis = config.NewRedisClient(ctx, cfg.Redis)
	if a.Redis == nil {
		log.Warn("redis unreachable, cache disabled", zap.String("addr", cfg.Redis.Addr))
	}

	var adapters []repository.Adapter
	for _, name := range cfg.Sources {
		ad, err := a.open(ctx, name)
		if err != nil {
			log.Warn("backend disabled", zap.String("source", name), zap.Error(err))
			continue
		}
		log.Info("backend ready", zap.String("source", name))
		adapters = append(adapters, ad)
	}
	if len(adapters) == 0 {
		a.Close()
		return nil, errors.New("no backend could be opened")
	}

	var events service.EventPublisher
	if cfg.RabbitURL != "" {
		events = queue.NewPublisher(cfg.RabbitURL, log.Named("events"))
	}

	a.Reconciler = service.NewReconciler(adapters, cfg.SourcePriority, cfg.SourceTimeout, log.Named("reconcile"))
	a.Booking = service.NewBookingService(
		catalog,
		service.NewValidator(catalog, cfg.StrictPricing),
		a.Reconciler,
		events,
		log.Named("booking"),
	)
	return a, nil
}

func (a *App) open(ctx context.Context, name string) (repository.Adapter, error) {
	cfg := a.Config
	switch name {
	case config.SourceDatabase:
		db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		return repository.NewMySQLStore(db), nil

	case config.SourceSheet:
		s, err := repository.NewSheetStore(ctx, repository.SheetConfig{
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			SheetName:       cfg.Sheets.SheetName,
			SheetID:         cfg.Sheets.SheetID,
			CredentialsFile: cfg.Sheets.CredentialsFile,
		}, a.Log.Named("sheet"))
		if err != nil {
			return nil, err
		}
		// the sheet may be temporarily unreachable; keep it and let reads report it
		if err := s.EnsureHeader(ctx); err != nil {
			a.Log.Warn("sheet header check failed", zap.Error(err))
		}
		return s, nil

	case config.SourceCache:
		if a.Redis == nil {
			return nil, errors.New("redis unreachable")
		}
		return repository.NewRedisStore(a.Redis, cfg.Redis.KeyPrefix, a.Log.Named("cache")), nil
	}
	return nil, fmt.Errorf("unknown source %q", name)
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	_ = a.Log.Sync()
}
