package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carpickup/platform/internal/domain/cars"
	"github.com/carpickup/platform/internal/domain/consistency"
)

var (
	ErrNotImplemented = errors.New("bookings repository: not implemented")
	ErrNotFound       = errors.New("booking not found")
	ErrInvalidID      = errors.New("invalid booking id")
	ErrInvalidCarID   = errors.New("invalid car id")
	ErrCarNotFound    = errors.New("car not found")
	ErrDateRequired   = errors.New("booking date is required")
)

// Booking links a user to a car for a date. BookingDate is an opaque,
// caller-formatted date string and stays mutable; everything else is fixed
// at creation.
type Booking struct {
	ID          string    `json:"_id"`
	CarID       string    `json:"carId"`
	UserEmail   string    `json:"userEmail"`
	BookingDate string    `json:"bookingDate"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DeleteResult reports how many records a delete removed.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

// Repository abstracts persistence for bookings. Insert assigns the record
// ID. CountByCar and DeleteByCar also satisfy cars.BookingSource so the car
// service can guard deletes against live bookings.
type Repository interface {
	Insert(ctx context.Context, booking Booking) (Booking, error)
	FindByID(ctx context.Context, id string) (Booking, error)
	ListByUser(ctx context.Context, email string) ([]Booking, error)
	UpdateDate(ctx context.Context, id string, date string) (Booking, error)
	Delete(ctx context.Context, id string) (DeleteResult, error)
	CountByCar(ctx context.Context, carID string) (int64, error)
	DeleteByCar(ctx context.Context, carID string) (int64, error)
}

// CarSource resolves a booking's car reference. Satisfied by cars.Repository.
type CarSource interface {
	FindByID(ctx context.Context, id string) (cars.Car, error)
}

// NullRepository stub implementation returning ErrNotImplemented.
type NullRepository struct{}

func (NullRepository) Insert(context.Context, Booking) (Booking, error) {
	return Booking{}, ErrNotImplemented
}

func (NullRepository) FindByID(context.Context, string) (Booking, error) {
	return Booking{}, ErrNotImplemented
}

func (NullRepository) ListByUser(context.Context, string) ([]Booking, error) {
	return nil, ErrNotImplemented
}

func (NullRepository) UpdateDate(context.Context, string, string) (Booking, error) {
	return Booking{}, ErrNotImplemented
}

func (NullRepository) Delete(context.Context, string) (DeleteResult, error) {
	return DeleteResult{}, ErrNotImplemented
}

func (NullRepository) CountByCar(context.Context, string) (int64, error) {
	return 0, ErrNotImplemented
}

func (NullRepository) DeleteByCar(context.Context, string) (int64, error) {
	return 0, ErrNotImplemented
}

// CreateInput carries the booking payload. The requester identity is passed
// separately from the verified auth context.
type CreateInput struct {
	CarID       string
	BookingDate string
}

// CreateResult reports both writes a booking creation performs: the booking
// insert and the counter update. The two are not a single transaction, so a
// failed create with a non-empty Booking.ID means the booking itself landed.
type CreateResult struct {
	Booking        Booking
	CounterUpdated bool
}

// Service defines operations for the booking ledger.
type Service interface {
	Create(ctx context.Context, input CreateInput, userEmail string) (CreateResult, error)
	ListByUser(ctx context.Context, email string) ([]Booking, error)
	Reschedule(ctx context.Context, id string, newDate string) (Booking, error)
	Cancel(ctx context.Context, id string) (DeleteResult, error)
}

// NewService creates a booking service wired to the car catalog and the
// counter coordinator.
func NewService(repo Repository, carSrc CarSource, coord *consistency.Coordinator) Service {
	return &service{repo: repo, cars: carSrc, coord: coord}
}

type service struct {
	repo  Repository
	cars  CarSource
	coord *consistency.Coordinator
}

func (s *service) Create(ctx context.Context, input CreateInput, userEmail string) (CreateResult, error) {
	if userEmail == "" {
		return CreateResult{}, errors.New("user email is required")
	}
	if uuidInvalid(input.CarID) {
		return CreateResult{}, ErrInvalidCarID
	}
	if input.BookingDate == "" {
		return CreateResult{}, ErrDateRequired
	}

	if _, err := s.cars.FindByID(ctx, input.CarID); err != nil {
		if errors.Is(err, cars.ErrNotFound) {
			return CreateResult{}, ErrCarNotFound
		}
		return CreateResult{}, fmt.Errorf("resolve car: %w", err)
	}

	booking, err := s.repo.Insert(ctx, Booking{
		CarID:       input.CarID,
		UserEmail:   userEmail,
		BookingDate: input.BookingDate,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return CreateResult{}, fmt.Errorf("insert booking: %w", err)
	}

	// The booking is already persisted; a counter failure here leaves the
	// ledger ahead of the counter until a retry, and the caller can see
	// that from the populated Booking.
	if err := s.coord.Increment(ctx, input.CarID); err != nil {
		return CreateResult{Booking: booking}, err
	}

	return CreateResult{Booking: booking, CounterUpdated: true}, nil
}

func (s *service) ListByUser(ctx context.Context, email string) ([]Booking, error) {
	return s.repo.ListByUser(ctx, email)
}

func (s *service) Reschedule(ctx context.Context, id string, newDate string) (Booking, error) {
	if uuidInvalid(id) {
		return Booking{}, ErrInvalidID
	}
	if newDate == "" {
		return Booking{}, ErrDateRequired
	}
	return s.repo.UpdateDate(ctx, id, newDate)
}

// Cancel removes the booking and reverses its effect on the car's counter
// as one logical operation. Cancelling an id that no longer exists is a
// no-op with DeletedCount 0, so repeated cancels never drive the counter
// below the number of live bookings.
func (s *service) Cancel(ctx context.Context, id string) (DeleteResult, error) {
	if uuidInvalid(id) {
		return DeleteResult{}, ErrInvalidID
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DeleteResult{}, nil
		}
		return DeleteResult{}, fmt.Errorf("find booking: %w", err)
	}

	result, err := s.repo.Delete(ctx, id)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete booking: %w", err)
	}

	// Only the delete that actually removed the record decrements, so
	// concurrent cancels of the same booking apply a single decrement.
	if result.DeletedCount > 0 {
		if err := s.coord.Decrement(ctx, booking.CarID); err != nil {
			return result, err
		}
	}
	return result, nil
}

func uuidInvalid(id string) bool {
	_, err := uuid.Parse(id)
	return err != nil
}
