package domain

import (
	"log/slog"

	"github.com/carpickup/platform/internal/domain/bookings"
	"github.com/carpickup/platform/internal/domain/cars"
	"github.com/carpickup/platform/internal/domain/consistency"
)

// Container wires domain services together. The booking service feeds every
// booking mutation through the consistency coordinator so car booking
// counters stay in step with the ledger.
type Container struct {
	Cars     cars.Service
	Bookings bookings.Service
}

// Options configures the domain container.
type Options struct {
	CarRepo     cars.Repository
	BookingRepo bookings.Repository
	Counter     consistency.CounterStore

	// StatusPolicy flips bookingStatus alongside the counter when set.
	StatusPolicy bool
	Logger       *slog.Logger
}

// New constructs a domain container with provided repositories.
func New(opts Options) Container {
	carRepo := opts.CarRepo
	if carRepo == nil {
		carRepo = cars.NullRepository{}
	}

	bookingRepo := opts.BookingRepo
	if bookingRepo == nil {
		bookingRepo = bookings.NullRepository{}
	}

	counter := opts.Counter
	if counter == nil {
		counter = consistency.NullStore{}
	}

	coordinator := consistency.New(counter, opts.StatusPolicy, opts.Logger)

	return Container{
		Cars:     cars.NewService(carRepo, bookingRepo),
		Bookings: bookings.NewService(bookingRepo, carRepo, coordinator),
	}
}
