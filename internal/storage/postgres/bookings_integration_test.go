//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carpickup/platform/internal/domain/bookings"
	"github.com/carpickup/platform/internal/domain/cars"
	"github.com/carpickup/platform/internal/storage/postgres"
)

func TestBookingRepositoryLifecycle(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	carRepo := postgres.NewCarRepository(db)
	repo := postgres.NewBookingRepository(db)
	ctx := context.Background()

	car, err := carRepo.Insert(ctx, cars.Car{
		OwnerEmail:    "owner@x.com",
		BookingStatus: cars.StatusAvailable,
		Attributes:    map[string]any{},
		DateAdded:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert car: %v", err)
	}

	created, err := repo.Insert(ctx, bookings.Booking{
		CarID:       car.ID,
		UserEmail:   "a@x.com",
		BookingDate: "2025-01-01",
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert booking: %v", err)
	}

	updated, err := repo.UpdateDate(ctx, created.ID, "2025-03-03")
	if err != nil {
		t.Fatalf("update date: %v", err)
	}
	if updated.BookingDate != "2025-03-03" {
		t.Fatalf("expected updated date, got %s", updated.BookingDate)
	}

	list, err := repo.ListByUser(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected listing: %+v", list)
	}

	n, err := repo.CountByCar(ctx, car.ID)
	if err != nil {
		t.Fatalf("count by car: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}

	del, err := repo.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if del.DeletedCount != 1 {
		t.Fatalf("expected 1 deleted, got %d", del.DeletedCount)
	}

	if _, err := repo.FindByID(ctx, created.ID); !errors.Is(err, bookings.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
