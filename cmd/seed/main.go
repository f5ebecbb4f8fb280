// Command seed loads a handful of sample cars (and one booking) through the
// domain services against the configured backend. Useful for exercising the
// API locally without a frontend.
package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/carpickup/platform/internal/config"
	"github.com/carpickup/platform/internal/database"
	"github.com/carpickup/platform/internal/domain"
	"github.com/carpickup/platform/internal/domain/bookings"
	"github.com/carpickup/platform/internal/domain/cars"
	"github.com/carpickup/platform/internal/logger"
	pgstorage "github.com/carpickup/platform/internal/storage/postgres"
	sqlitestorage "github.com/carpickup/platform/internal/storage/sqlite"
)

const seedOwner = "seed@carpickup.dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "seed failed:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logr := logger.New(cfg.Env)
	ctx := context.Background()

	var container domain.Container
	switch cfg.DataBackend {
	case "postgres":
		db, err := database.Connect(ctx, database.Options{
			Driver: cfg.DatabaseDriver,
			DSN:    cfg.DatabaseURL,
			Logger: logr,
		})
		if err != nil {
			return err
		}
		defer db.Close()

		migrator := database.NewSQLMigrator(db.DB, database.MigrationsFS(), database.MigrationsPath, logr)
		if err := db.RunMigrations(ctx, migrator); err != nil {
			return err
		}

		carRepo := pgstorage.NewCarRepository(db.DB)
		container = domain.New(domain.Options{
			CarRepo:     carRepo,
			BookingRepo: pgstorage.NewBookingRepository(db.DB),
			Counter:     carRepo,
			Logger:      logr,
		})
	case "sqlite":
		db, err := sqlitestorage.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()

		carRepo := sqlitestorage.NewCarRepository(db)
		container = domain.New(domain.Options{
			CarRepo:     carRepo,
			BookingRepo: sqlitestorage.NewBookingRepository(db),
			Counter:     carRepo,
			Logger:      logr,
		})
	default:
		return fmt.Errorf("seeding requires DATA_BACKEND=postgres or sqlite, got %q", cfg.DataBackend)
	}

	samples := []map[string]any{
		{"make": "Honda", "model": "Civic", "year": 2021, "dailyPrice": 45},
		{"make": "Toyota", "model": "Corolla", "year": 2020, "dailyPrice": 40},
		{"make": "Ford", "model": "Mustang", "year": 2023, "dailyPrice": 95},
		{"make": "Tesla", "model": "Model 3", "year": 2022, "dailyPrice": 110},
	}

	var first cars.Car
	for i, attrs := range samples {
		car, err := container.Cars.Create(ctx, cars.CreateInput{
			Attributes: attrs,
			OwnerEmail: seedOwner,
		})
		if err != nil {
			return fmt.Errorf("seed car %d: %w", i+1, err)
		}
		if i == 0 {
			first = car
		}
		logr.Info("seeded car", "id", car.ID, "model", attrs["model"])
	}

	result, err := container.Bookings.Create(ctx, bookings.CreateInput{
		CarID:       first.ID,
		BookingDate: "2026-09-15",
	}, "renter@carpickup.dev")
	if err != nil {
		return fmt.Errorf("seed booking: %w", err)
	}
	logr.Info("seeded booking", "id", result.Booking.ID, "car_id", first.ID)

	return nil
}
