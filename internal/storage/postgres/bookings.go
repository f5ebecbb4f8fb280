package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carpickup/platform/internal/domain/bookings"
)

// BookingRepository persists bookings in Postgres.
type BookingRepository struct {
	db *sql.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = "id, car_id, user_email, booking_date, created_at"

// Insert stores a new booking, assigning its identifier.
func (r *BookingRepository) Insert(ctx context.Context, b bookings.Booking) (bookings.Booking, error) {
	const query = `
        INSERT INTO bookings (id, car_id, user_email, booking_date, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `

	b.ID = uuid.NewString()
	if _, err := r.db.ExecContext(ctx, query,
		b.ID,
		b.CarID,
		b.UserEmail,
		b.BookingDate,
		b.CreatedAt,
	); err != nil {
		return bookings.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	return b, nil
}

// FindByID fetches a booking by identifier.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (bookings.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var b bookings.Booking
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID,
		&b.CarID,
		&b.UserEmail,
		&b.BookingDate,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bookings.Booking{}, bookings.ErrNotFound
		}
		return bookings.Booking{}, fmt.Errorf("find booking: %w", err)
	}
	return b, nil
}

// ListByUser returns bookings with an exact user email match.
func (r *BookingRepository) ListByUser(ctx context.Context, email string) ([]bookings.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE user_email = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var result []bookings.Booking
	for rows.Next() {
		var b bookings.Booking
		if err := rows.Scan(&b.ID, &b.CarID, &b.UserEmail, &b.BookingDate, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		result = append(result, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

// UpdateDate changes a booking's date and returns the updated record.
func (r *BookingRepository) UpdateDate(ctx context.Context, id string, date string) (bookings.Booking, error) {
	const query = `
        UPDATE bookings SET booking_date = $2
         WHERE id = $1
        RETURNING ` + bookingColumns

	var b bookings.Booking
	err := r.db.QueryRowContext(ctx, query, id, date).Scan(
		&b.ID,
		&b.CarID,
		&b.UserEmail,
		&b.BookingDate,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bookings.Booking{}, bookings.ErrNotFound
		}
		return bookings.Booking{}, fmt.Errorf("update booking date: %w", err)
	}
	return b, nil
}

// Delete removes a booking; deleting an absent id reports zero rows.
func (r *BookingRepository) Delete(ctx context.Context, id string) (bookings.DeleteResult, error) {
	const query = `DELETE FROM bookings WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return bookings.DeleteResult{}, fmt.Errorf("delete booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return bookings.DeleteResult{}, fmt.Errorf("delete booking rows: %w", err)
	}
	return bookings.DeleteResult{DeletedCount: n}, nil
}

// CountByCar reports how many bookings reference the car.
func (r *BookingRepository) CountByCar(ctx context.Context, carID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM bookings WHERE car_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, carID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return n, nil
}

// DeleteByCar removes every booking referencing the car.
func (r *BookingRepository) DeleteByCar(ctx context.Context, carID string) (int64, error) {
	const query = `DELETE FROM bookings WHERE car_id = $1`

	res, err := r.db.ExecContext(ctx, query, carID)
	if err != nil {
		return 0, fmt.Errorf("delete bookings by car: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete bookings rows: %w", err)
	}
	return n, nil
}
