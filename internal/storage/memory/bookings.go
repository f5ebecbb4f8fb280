package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/carpickup/platform/internal/domain/bookings"
)

// BookingRepository is an in-memory implementation of bookings.Repository.
type BookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]bookings.Booking
}

// NewBookingRepository creates an in-memory booking repo.
func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		bookings: make(map[string]bookings.Booking),
	}
}

func (r *BookingRepository) Insert(_ context.Context, b bookings.Booking) (bookings.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b.ID = newID()
	r.bookings[b.ID] = b
	return b, nil
}

func (r *BookingRepository) FindByID(_ context.Context, id string) (bookings.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return bookings.Booking{}, bookings.ErrNotFound
	}
	return b, nil
}

func (r *BookingRepository) ListByUser(_ context.Context, email string) ([]bookings.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var list []bookings.Booking
	for _, b := range r.bookings {
		if b.UserEmail == email {
			list = append(list, b)
		}
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (r *BookingRepository) UpdateDate(_ context.Context, id string, date string) (bookings.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return bookings.Booking{}, bookings.ErrNotFound
	}
	b.BookingDate = date
	r.bookings[id] = b
	return b, nil
}

func (r *BookingRepository) Delete(_ context.Context, id string) (bookings.DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[id]; !ok {
		return bookings.DeleteResult{}, nil
	}
	delete(r.bookings, id)
	return bookings.DeleteResult{DeletedCount: 1}, nil
}

func (r *BookingRepository) CountByCar(_ context.Context, carID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, b := range r.bookings {
		if b.CarID == carID {
			n++
		}
	}
	return n, nil
}

func (r *BookingRepository) DeleteByCar(_ context.Context, carID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, b := range r.bookings {
		if b.CarID == carID {
			delete(r.bookings, id)
			n++
		}
	}
	return n, nil
}
