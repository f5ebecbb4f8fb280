package cars

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotImplemented = errors.New("cars repository: not implemented")
	ErrNotFound       = errors.New("car not found")
	ErrInvalidID      = errors.New("invalid car id")
	ErrHasBookings    = errors.New("car has active bookings")
)

// BookingStatus is the coarse availability flag on a car.
type BookingStatus string

const (
	StatusAvailable BookingStatus = "Available"
	StatusBooked    BookingStatus = "Booked"
)

// DefaultRecentLimit bounds ListRecent when no limit is supplied.
const DefaultRecentLimit = 8

// Car is a vehicle inventory record. Attributes carries whatever fields the
// listing owner supplied (make, model, price, ...); the platform treats them
// as opaque and only manages the identity, status and counter fields.
type Car struct {
	ID            string
	OwnerEmail    string
	BookingStatus BookingStatus
	BookingCount  int64
	Attributes    map[string]any
	DateAdded     time.Time
}

// MarshalJSON flattens Attributes into the top-level object so the wire
// shape matches the original listing payload, with the managed fields
// overlaid. BookingCount is omitted until the first booking.
func (c Car) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Attributes)+5)
	for k, v := range c.Attributes {
		out[k] = v
	}
	out["_id"] = c.ID
	out["ownerEmail"] = c.OwnerEmail
	out["bookingStatus"] = string(c.BookingStatus)
	out["dateAdded"] = c.DateAdded.UTC().Format(time.RFC3339)
	if c.BookingCount > 0 {
		out["bookingCount"] = c.BookingCount
	}
	return json.Marshal(out)
}

// UpdateResult mirrors the storage layer's matched/modified counts.
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// DeleteResult reports how many records a delete removed.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

// Repository abstracts persistence for cars. Insert assigns the record ID.
type Repository interface {
	Insert(ctx context.Context, car Car) (Car, error)
	FindByID(ctx context.Context, id string) (Car, error)
	List(ctx context.Context) ([]Car, error)
	ListRecent(ctx context.Context, limit int) ([]Car, error)
	ListByOwner(ctx context.Context, email string) ([]Car, error)
	Update(ctx context.Context, id string, fields map[string]any) (UpdateResult, error)
	Delete(ctx context.Context, id string) (DeleteResult, error)
}

// BookingSource reports and removes the bookings referencing a car. It is
// implemented by the booking repositories and lets Delete refuse (or
// cascade over) cars that still have live bookings.
type BookingSource interface {
	CountByCar(ctx context.Context, carID string) (int64, error)
	DeleteByCar(ctx context.Context, carID string) (int64, error)
}

// NullRepository stub implementation returning ErrNotImplemented.
type NullRepository struct{}

func (NullRepository) Insert(context.Context, Car) (Car, error) {
	return Car{}, ErrNotImplemented
}

func (NullRepository) FindByID(context.Context, string) (Car, error) {
	return Car{}, ErrNotImplemented
}

func (NullRepository) List(context.Context) ([]Car, error) {
	return nil, ErrNotImplemented
}

func (NullRepository) ListRecent(context.Context, int) ([]Car, error) {
	return nil, ErrNotImplemented
}

func (NullRepository) ListByOwner(context.Context, string) ([]Car, error) {
	return nil, ErrNotImplemented
}

func (NullRepository) Update(context.Context, string, map[string]any) (UpdateResult, error) {
	return UpdateResult{}, ErrNotImplemented
}

func (NullRepository) Delete(context.Context, string) (DeleteResult, error) {
	return DeleteResult{}, ErrNotImplemented
}

// Service defines operations for the car inventory.
type Service interface {
	Create(ctx context.Context, input CreateInput) (Car, error)
	List(ctx context.Context) ([]Car, error)
	ListRecent(ctx context.Context, limit int) ([]Car, error)
	Get(ctx context.Context, id string) (Car, error)
	ListByOwner(ctx context.Context, email string) ([]Car, error)
	Update(ctx context.Context, id string, fields map[string]any) (UpdateResult, error)
	Delete(ctx context.Context, id string, cascade bool) (DeleteResult, error)
}

// CreateInput is used to create a new car. OwnerEmail must come from the
// verified auth identity, never from the request payload.
type CreateInput struct {
	Attributes map[string]any
	OwnerEmail string
}

// NewService creates a car service. bookings may be nil, which disables the
// live-booking guard on Delete.
func NewService(repo Repository, bookings BookingSource) Service {
	return &service{repo: repo, bookings: bookings}
}

type service struct {
	repo     Repository
	bookings BookingSource
}

// managedFields are stamped server-side and stripped from caller payloads.
var managedFields = []string{"_id", "id", "ownerEmail", "bookingStatus", "bookingCount", "dateAdded"}

func (s *service) Create(ctx context.Context, input CreateInput) (Car, error) {
	if input.OwnerEmail == "" {
		return Car{}, errors.New("owner email is required")
	}

	attrs := make(map[string]any, len(input.Attributes))
	for k, v := range input.Attributes {
		attrs[k] = v
	}
	for _, f := range managedFields {
		delete(attrs, f)
	}

	car := Car{
		OwnerEmail:    input.OwnerEmail,
		BookingStatus: StatusAvailable,
		Attributes:    attrs,
		DateAdded:     time.Now().UTC(),
	}
	return s.repo.Insert(ctx, car)
}

func (s *service) List(ctx context.Context) ([]Car, error) {
	return s.repo.List(ctx)
}

func (s *service) ListRecent(ctx context.Context, limit int) ([]Car, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.repo.ListRecent(ctx, limit)
}

func (s *service) Get(ctx context.Context, id string) (Car, error) {
	if err := ValidateID(id); err != nil {
		return Car{}, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListByOwner(ctx context.Context, email string) ([]Car, error) {
	return s.repo.ListByOwner(ctx, email)
}

func (s *service) Update(ctx context.Context, id string, fields map[string]any) (UpdateResult, error) {
	if err := ValidateID(id); err != nil {
		return UpdateResult{}, err
	}

	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		clean[k] = v
	}
	// Identifiers are immutable; the counter and creation time are
	// system-owned. bookingStatus stays caller-writable.
	delete(clean, "_id")
	delete(clean, "id")
	delete(clean, "bookingCount")
	delete(clean, "dateAdded")

	if len(clean) == 0 {
		return UpdateResult{}, nil
	}
	return s.repo.Update(ctx, id, clean)
}

func (s *service) Delete(ctx context.Context, id string, cascade bool) (DeleteResult, error) {
	if err := ValidateID(id); err != nil {
		return DeleteResult{}, err
	}

	if s.bookings != nil {
		n, err := s.bookings.CountByCar(ctx, id)
		if err != nil {
			return DeleteResult{}, err
		}
		if n > 0 {
			if !cascade {
				return DeleteResult{}, ErrHasBookings
			}
			if _, err := s.bookings.DeleteByCar(ctx, id); err != nil {
				return DeleteResult{}, err
			}
		}
	}
	return s.repo.Delete(ctx, id)
}

// ValidateID checks that id is a well-formed car identifier.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}
