//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/carpickup/platform/internal/domain/cars"
	"github.com/carpickup/platform/internal/storage/postgres"
)

func TestCarRepositoryRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := postgres.NewCarRepository(db)
	ctx := context.Background()

	created, err := repo.Insert(ctx, cars.Car{
		OwnerEmail:    "owner@x.com",
		BookingStatus: cars.StatusAvailable,
		Attributes:    map[string]any{"make": "Honda", "model": "Civic", "dailyPrice": 45},
		DateAdded:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert car: %v", err)
	}

	found, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find car: %v", err)
	}
	if found.Attributes["model"] != "Civic" {
		t.Fatalf("expected attributes round-trip, got %v", found.Attributes)
	}

	result, err := repo.Update(ctx, created.ID, map[string]any{"color": "red", "bookingStatus": "Booked"})
	if err != nil {
		t.Fatalf("update car: %v", err)
	}
	if result.ModifiedCount != 1 {
		t.Fatalf("expected 1 modified, got %+v", result)
	}

	found, err = repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find car after update: %v", err)
	}
	if found.Attributes["color"] != "red" || found.Attributes["make"] != "Honda" {
		t.Fatalf("expected merged attributes, got %v", found.Attributes)
	}
	if found.BookingStatus != cars.StatusBooked {
		t.Fatalf("expected Booked, got %s", found.BookingStatus)
	}

	del, err := repo.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete car: %v", err)
	}
	if del.DeletedCount != 1 {
		t.Fatalf("expected 1 deleted, got %d", del.DeletedCount)
	}

	if _, err := repo.FindByID(ctx, created.ID); !errors.Is(err, cars.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestConcurrentCounterIncrements(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := postgres.NewCarRepository(db)
	ctx := context.Background()

	car, err := repo.Insert(ctx, cars.Car{
		OwnerEmail:    "owner@x.com",
		BookingStatus: cars.StatusAvailable,
		Attributes:    map[string]any{},
		DateAdded:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert car: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementBookingCount(ctx, car.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("increment failed: %v", err)
		}
	}

	found, err := repo.FindByID(ctx, car.ID)
	if err != nil {
		t.Fatalf("find car: %v", err)
	}
	if found.BookingCount != n {
		t.Fatalf("expected bookingCount %d, got %d", n, found.BookingCount)
	}

	// Decrement floors at zero no matter how often it runs.
	for i := 0; i < n+5; i++ {
		if _, err := repo.DecrementBookingCount(ctx, car.ID); err != nil {
			t.Fatalf("decrement failed: %v", err)
		}
	}
	found, _ = repo.FindByID(ctx, car.ID)
	if found.BookingCount != 0 {
		t.Fatalf("expected bookingCount 0, got %d", found.BookingCount)
	}
}
