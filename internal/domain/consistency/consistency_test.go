package consistency

import (
	"context"
	"errors"
	"testing"

	"github.com/carpickup/platform/internal/domain/cars"
)

type fakeStore struct {
	count     int64
	status    cars.BookingStatus
	statusSet int
	failNext  error
}

func (s *fakeStore) IncrementBookingCount(context.Context, string) (int64, error) {
	if s.failNext != nil {
		return 0, s.failNext
	}
	s.count++
	return s.count, nil
}

func (s *fakeStore) DecrementBookingCount(context.Context, string) (int64, error) {
	if s.failNext != nil {
		return 0, s.failNext
	}
	if s.count > 0 {
		s.count--
	}
	return s.count, nil
}

func (s *fakeStore) UpdateBookingStatus(_ context.Context, _ string, status cars.BookingStatus) error {
	s.status = status
	s.statusSet++
	return nil
}

func TestIncrementDecrement(t *testing.T) {
	store := &fakeStore{}
	coord := New(store, false, nil)
	ctx := context.Background()

	if err := coord.Increment(ctx, "car-1"); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if err := coord.Increment(ctx, "car-1"); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if store.count != 2 {
		t.Fatalf("expected count 2, got %d", store.count)
	}

	if err := coord.Decrement(ctx, "car-1"); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if store.count != 1 {
		t.Fatalf("expected count 1, got %d", store.count)
	}

	if store.statusSet != 0 {
		t.Fatal("status must stay untouched without the policy")
	}
}

func TestStorePropagatesErrors(t *testing.T) {
	storeErr := errors.New("connection reset")
	store := &fakeStore{failNext: storeErr}
	coord := New(store, false, nil)
	ctx := context.Background()

	if err := coord.Increment(ctx, "car-1"); !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if err := coord.Decrement(ctx, "car-1"); !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestStatusPolicy(t *testing.T) {
	store := &fakeStore{}
	coord := New(store, true, nil)
	ctx := context.Background()

	if err := coord.Increment(ctx, "car-1"); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if store.status != cars.StatusBooked {
		t.Fatalf("expected Booked, got %s", store.status)
	}

	if err := coord.Increment(ctx, "car-1"); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if err := coord.Decrement(ctx, "car-1"); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	// One booking still live; the car stays Booked.
	if store.status != cars.StatusBooked {
		t.Fatalf("expected Booked with live bookings, got %s", store.status)
	}

	if err := coord.Decrement(ctx, "car-1"); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if store.status != cars.StatusAvailable {
		t.Fatalf("expected Available at zero, got %s", store.status)
	}
}

func TestNullStore(t *testing.T) {
	coord := New(NullStore{}, false, nil)

	if err := coord.Increment(context.Background(), "car-1"); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}
