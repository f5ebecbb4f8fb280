package bookings_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/carpickup/platform/internal/domain/bookings"
	"github.com/carpickup/platform/internal/domain/cars"
	"github.com/carpickup/platform/internal/domain/consistency"
	"github.com/carpickup/platform/internal/storage/memory"
)

type fixture struct {
	cars     cars.Service
	bookings bookings.Service
	carRepo  *memory.CarRepository
}

func newFixture(statusPolicy bool) fixture {
	carRepo := memory.NewCarRepository()
	bookingRepo := memory.NewBookingRepository()
	coordinator := consistency.New(carRepo, statusPolicy, nil)
	return fixture{
		cars:     cars.NewService(carRepo, bookingRepo),
		bookings: bookings.NewService(bookingRepo, carRepo, coordinator),
		carRepo:  carRepo,
	}
}

func (f fixture) mustCreateCar(t *testing.T, model string) cars.Car {
	t.Helper()
	car, err := f.cars.Create(context.Background(), cars.CreateInput{
		Attributes: map[string]any{"model": model},
		OwnerEmail: "owner@x.com",
	})
	if err != nil {
		t.Fatalf("create car failed: %v", err)
	}
	return car
}

func TestBookingCreateIncrementsCounter(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	car := f.mustCreateCar(t, "Civic")
	if car.BookingStatus != cars.StatusAvailable {
		t.Fatalf("expected new car Available, got %s", car.BookingStatus)
	}

	first, err := f.bookings.Create(ctx, bookings.CreateInput{
		CarID:       car.ID,
		BookingDate: "2025-01-01",
	}, "a@x.com")
	if err != nil {
		t.Fatalf("create booking failed: %v", err)
	}
	if !first.CounterUpdated {
		t.Fatal("expected counter update on create")
	}

	got, err := f.cars.Get(ctx, car.ID)
	if err != nil {
		t.Fatalf("get car failed: %v", err)
	}
	if got.BookingCount != 1 {
		t.Fatalf("expected bookingCount 1, got %d", got.BookingCount)
	}

	if _, err := f.bookings.Create(ctx, bookings.CreateInput{
		CarID:       car.ID,
		BookingDate: "2025-01-02",
	}, "b@x.com"); err != nil {
		t.Fatalf("second booking failed: %v", err)
	}

	got, _ = f.cars.Get(ctx, car.ID)
	if got.BookingCount != 2 {
		t.Fatalf("expected bookingCount 2, got %d", got.BookingCount)
	}

	// Cancel the first booking and the counter falls back to 1.
	result, err := f.bookings.Cancel(ctx, first.Booking.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if result.DeletedCount != 1 {
		t.Fatalf("expected 1 deleted, got %d", result.DeletedCount)
	}

	got, _ = f.cars.Get(ctx, car.ID)
	if got.BookingCount != 1 {
		t.Fatalf("expected bookingCount 1 after cancel, got %d", got.BookingCount)
	}
}

func TestConcurrentBookingsLoseNoUpdates(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	car := f.mustCreateCar(t, "Corolla")

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.bookings.Create(ctx, bookings.CreateInput{
				CarID:       car.ID,
				BookingDate: "2025-06-01",
			}, "racer@x.com")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent create failed: %v", err)
		}
	}

	got, err := f.cars.Get(ctx, car.ID)
	if err != nil {
		t.Fatalf("get car failed: %v", err)
	}
	if got.BookingCount != n {
		t.Fatalf("expected bookingCount %d, got %d", n, got.BookingCount)
	}
}

func TestCancelNeverGoesNegative(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	car := f.mustCreateCar(t, "Mustang")

	result, err := f.bookings.Create(ctx, bookings.CreateInput{
		CarID:       car.ID,
		BookingDate: "2025-03-01",
	}, "a@x.com")
	if err != nil {
		t.Fatalf("create booking failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := f.bookings.Cancel(ctx, result.Booking.ID); err != nil {
			t.Fatalf("cancel %d failed: %v", i+1, err)
		}
	}

	got, _ := f.cars.Get(ctx, car.ID)
	if got.BookingCount != 0 {
		t.Fatalf("expected bookingCount 0, got %d", got.BookingCount)
	}
}

func TestCancelAbsentBookingIsNoOp(t *testing.T) {
	f := newFixture(false)

	result, err := f.bookings.Cancel(context.Background(), "6f1c8a52-0c3d-4b5e-8f00-58b9a7a5a111")
	if err != nil {
		t.Fatalf("cancel errored: %v", err)
	}
	if result.DeletedCount != 0 {
		t.Fatalf("expected 0 deleted, got %d", result.DeletedCount)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	car := f.mustCreateCar(t, "Model 3")

	if _, err := f.bookings.Create(ctx, bookings.CreateInput{
		CarID:       "not-a-uuid",
		BookingDate: "2025-01-01",
	}, "a@x.com"); !errors.Is(err, bookings.ErrInvalidCarID) {
		t.Fatalf("expected ErrInvalidCarID, got %v", err)
	}

	if _, err := f.bookings.Create(ctx, bookings.CreateInput{
		CarID: car.ID,
	}, "a@x.com"); !errors.Is(err, bookings.ErrDateRequired) {
		t.Fatalf("expected ErrDateRequired, got %v", err)
	}

	if _, err := f.bookings.Create(ctx, bookings.CreateInput{
		CarID:       "6f1c8a52-0c3d-4b5e-8f00-58b9a7a5a111",
		BookingDate: "2025-01-01",
	}, "a@x.com"); !errors.Is(err, bookings.ErrCarNotFound) {
		t.Fatalf("expected ErrCarNotFound, got %v", err)
	}
}

func TestRescheduleValidation(t *testing.T) {
	carRepo := memory.NewCarRepository()
	repo := trackingBookingRepo{}
	svc := bookings.NewService(&repo, carRepo, consistency.New(carRepo, false, nil))
	ctx := context.Background()

	if _, err := svc.Reschedule(ctx, "zzz", "2025-01-01"); !errors.Is(err, bookings.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := svc.Reschedule(ctx, "6f1c8a52-0c3d-4b5e-8f00-58b9a7a5a111", ""); !errors.Is(err, bookings.ErrDateRequired) {
		t.Fatalf("expected ErrDateRequired, got %v", err)
	}
	if repo.touched {
		t.Fatal("storage must not be touched for invalid reschedule input")
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	car := f.mustCreateCar(t, "Civic")

	result, err := f.bookings.Create(ctx, bookings.CreateInput{
		CarID:       car.ID,
		BookingDate: "2025-01-01",
	}, "a@x.com")
	if err != nil {
		t.Fatalf("create booking failed: %v", err)
	}

	updated, err := f.bookings.Reschedule(ctx, result.Booking.ID, "2025-02-02")
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if updated.BookingDate != "2025-02-02" {
		t.Fatalf("expected new date, got %s", updated.BookingDate)
	}
	if updated.ID != result.Booking.ID || updated.CarID != car.ID {
		t.Fatal("reschedule must not change identity fields")
	}

	if _, err := f.bookings.Reschedule(ctx, "6f1c8a52-0c3d-4b5e-8f00-58b9a7a5a111", "2025-02-02"); !errors.Is(err, bookings.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByUser(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	car := f.mustCreateCar(t, "Corolla")

	for _, email := range []string{"a@x.com", "a@x.com", "b@x.com"} {
		if _, err := f.bookings.Create(ctx, bookings.CreateInput{
			CarID:       car.ID,
			BookingDate: "2025-01-01",
		}, email); err != nil {
			t.Fatalf("create booking failed: %v", err)
		}
	}

	list, err := f.bookings.ListByUser(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(list))
	}
}

func TestStatusPolicyFlipsAvailability(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()
	car := f.mustCreateCar(t, "Model 3")

	result, err := f.bookings.Create(ctx, bookings.CreateInput{
		CarID:       car.ID,
		BookingDate: "2025-01-01",
	}, "a@x.com")
	if err != nil {
		t.Fatalf("create booking failed: %v", err)
	}

	got, _ := f.cars.Get(ctx, car.ID)
	if got.BookingStatus != cars.StatusBooked {
		t.Fatalf("expected Booked under status policy, got %s", got.BookingStatus)
	}

	if _, err := f.bookings.Cancel(ctx, result.Booking.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	got, _ = f.cars.Get(ctx, car.ID)
	if got.BookingStatus != cars.StatusAvailable {
		t.Fatalf("expected Available after last cancel, got %s", got.BookingStatus)
	}
}

// trackingBookingRepo records whether storage was touched.
type trackingBookingRepo struct {
	bookings.NullRepository
	touched bool
}

func (r *trackingBookingRepo) UpdateDate(context.Context, string, string) (bookings.Booking, error) {
	r.touched = true
	return bookings.Booking{}, bookings.ErrNotFound
}
