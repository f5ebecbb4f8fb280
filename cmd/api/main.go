package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/carpickup/platform/internal/auth"
	"github.com/carpickup/platform/internal/config"
	"github.com/carpickup/platform/internal/database"
	"github.com/carpickup/platform/internal/domain"
	"github.com/carpickup/platform/internal/httpapi"
	"github.com/carpickup/platform/internal/logger"
	"github.com/carpickup/platform/internal/server"
	"github.com/carpickup/platform/internal/storage/memory"
	pgstorage "github.com/carpickup/platform/internal/storage/postgres"
	sqlitestorage "github.com/carpickup/platform/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logr := logger.New(cfg.Env)

	baseCtx := context.Background()

	// The storage handle is opened once here and shared by every request
	// through the repositories; nothing opens per-request connections.
	var sqlDB *sql.DB
	switch cfg.DataBackend {
	case "postgres":
		db, err := database.Connect(baseCtx, database.Options{
			Driver:          cfg.DatabaseDriver,
			DSN:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
			Logger:          logr,
		})
		if err != nil {
			logr.Error("failed to connect database", "err", err)
			os.Exit(1)
		}
		defer func() {
			if cerr := db.Close(); cerr != nil {
				logr.Error("error closing database", "err", cerr)
			}
		}()

		migrator := database.NewSQLMigrator(db.DB, database.MigrationsFS(), database.MigrationsPath, logr)
		if err := db.RunMigrations(baseCtx, migrator); err != nil {
			logr.Error("database migrations failed", "err", err)
			os.Exit(1)
		}
		sqlDB = db.DB
	case "sqlite":
		db, err := sqlitestorage.Open(baseCtx, cfg.SQLitePath)
		if err != nil {
			logr.Error("failed to open sqlite database", "err", err)
			os.Exit(1)
		}
		defer func() {
			if cerr := db.Close(); cerr != nil {
				logr.Error("error closing database", "err", cerr)
			}
		}()
		logr.Info("sqlite database ready", "path", cfg.SQLitePath)
		sqlDB = db
	}

	domainContainer, err := buildDomainContainer(cfg, logr, sqlDB)
	if err != nil {
		logr.Error("failed to init domain container", "err", err)
		os.Exit(1)
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		logr.Error("failed to init token verifier", "err", err)
		os.Exit(1)
	}

	srv := server.New(cfg, logr)

	httpapi.Register(srv.Mux(), logr, verifier, domainContainer, cfg.RecentCarsLimit)

	go func() {
		if err := srv.Run(); err != nil {
			logr.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("server shutdown failed", "err", err)
		os.Exit(1)
	}
}

func buildDomainContainer(cfg config.Config, logr *slog.Logger, sqlDB *sql.DB) (domain.Container, error) {
	switch cfg.DataBackend {
	case "memory":
		logr.Info("using in-memory repositories (DATA_BACKEND=memory)")
		carRepo := memory.NewCarRepository()
		return domain.New(domain.Options{
			CarRepo:      carRepo,
			BookingRepo:  memory.NewBookingRepository(),
			Counter:      carRepo,
			StatusPolicy: cfg.BookingStatusPolicy,
			Logger:       logr,
		}), nil
	case "postgres":
		if sqlDB == nil {
			return domain.Container{}, fmt.Errorf("postgres backend requires database connection")
		}
		logr.Info("using postgres repositories (DATA_BACKEND=postgres)")
		carRepo := pgstorage.NewCarRepository(sqlDB)
		return domain.New(domain.Options{
			CarRepo:      carRepo,
			BookingRepo:  pgstorage.NewBookingRepository(sqlDB),
			Counter:      carRepo,
			StatusPolicy: cfg.BookingStatusPolicy,
			Logger:       logr,
		}), nil
	case "sqlite":
		if sqlDB == nil {
			return domain.Container{}, fmt.Errorf("sqlite backend requires database connection")
		}
		logr.Info("using sqlite repositories (DATA_BACKEND=sqlite)")
		carRepo := sqlitestorage.NewCarRepository(sqlDB)
		return domain.New(domain.Options{
			CarRepo:      carRepo,
			BookingRepo:  sqlitestorage.NewBookingRepository(sqlDB),
			Counter:      carRepo,
			StatusPolicy: cfg.BookingStatusPolicy,
			Logger:       logr,
		}), nil
	default:
		return domain.Container{}, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}
