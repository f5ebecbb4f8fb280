// Package consistency keeps each car's bookingCount in step with the
// bookings that reference it. Every booking mutation funnels through the
// Coordinator, which applies the change as an atomic storage-level delta so
// concurrent bookings on the same car never lose an update.
package consistency

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/carpickup/platform/internal/domain/cars"
)

// CounterStore is the storage primitive the coordinator relies on. Both
// counter methods MUST apply a relative delta in a single storage operation
// (never read-then-write) and return the resulting count. Decrement floors
// at zero. Retrying either call after a transient failure is safe: the
// delta, not a previously read value, is what gets committed.
type CounterStore interface {
	IncrementBookingCount(ctx context.Context, carID string) (int64, error)
	DecrementBookingCount(ctx context.Context, carID string) (int64, error)
	UpdateBookingStatus(ctx context.Context, carID string, status cars.BookingStatus) error
}

// ErrNotImplemented is returned by NullStore.
var ErrNotImplemented = errors.New("counter store: not implemented")

// NullStore stub implementation returning ErrNotImplemented.
type NullStore struct{}

func (NullStore) IncrementBookingCount(context.Context, string) (int64, error) {
	return 0, ErrNotImplemented
}

func (NullStore) DecrementBookingCount(context.Context, string) (int64, error) {
	return 0, ErrNotImplemented
}

func (NullStore) UpdateBookingStatus(context.Context, string, cars.BookingStatus) error {
	return ErrNotImplemented
}

// Coordinator serializes bookingCount changes through the atomic store.
type Coordinator struct {
	store        CounterStore
	statusPolicy bool
	logger       *slog.Logger
}

// New constructs a Coordinator. When statusPolicy is true the car's
// bookingStatus flips to Booked on the first booking and back to Available
// when the count returns to zero; otherwise the flag stays caller-managed.
func New(store CounterStore, statusPolicy bool, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: store, statusPolicy: statusPolicy, logger: logger}
}

// Increment raises the car's booking counter by exactly one.
func (c *Coordinator) Increment(ctx context.Context, carID string) error {
	count, err := c.store.IncrementBookingCount(ctx, carID)
	if err != nil {
		return fmt.Errorf("increment booking count: %w", err)
	}

	if c.statusPolicy && count > 0 {
		c.applyStatus(ctx, carID, cars.StatusBooked)
	}
	return nil
}

// Decrement lowers the car's booking counter by one, floored at zero.
func (c *Coordinator) Decrement(ctx context.Context, carID string) error {
	count, err := c.store.DecrementBookingCount(ctx, carID)
	if err != nil {
		return fmt.Errorf("decrement booking count: %w", err)
	}

	if c.statusPolicy && count == 0 {
		c.applyStatus(ctx, carID, cars.StatusAvailable)
	}
	return nil
}

// applyStatus is best-effort: the counter is the invariant, the coarse flag
// is derived from it and can be repaired by the next mutation.
func (c *Coordinator) applyStatus(ctx context.Context, carID string, status cars.BookingStatus) {
	if err := c.store.UpdateBookingStatus(ctx, carID, status); err != nil {
		c.logger.Error("booking status update failed", "car_id", carID, "status", string(status), "err", err)
	}
}
