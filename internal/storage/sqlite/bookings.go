package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carpickup/platform/internal/domain/bookings"
)

// BookingRepository persists bookings in SQLite.
type BookingRepository struct {
	db *sql.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = "id, car_id, user_email, booking_date, created_at"

func (r *BookingRepository) Insert(ctx context.Context, b bookings.Booking) (bookings.Booking, error) {
	const query = `
		INSERT INTO bookings (id, car_id, user_email, booking_date, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	b.ID = uuid.NewString()
	if _, err := r.db.ExecContext(ctx, query,
		b.ID,
		b.CarID,
		b.UserEmail,
		b.BookingDate,
		b.CreatedAt.UnixNano(),
	); err != nil {
		return bookings.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	return b, nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (bookings.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bookings.Booking{}, bookings.ErrNotFound
		}
		return bookings.Booking{}, fmt.Errorf("find booking: %w", err)
	}
	return b, nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, email string) ([]bookings.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE user_email = ? ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var result []bookings.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		result = append(result, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *BookingRepository) UpdateDate(ctx context.Context, id string, date string) (bookings.Booking, error) {
	const query = `
		UPDATE bookings SET booking_date = ?
		 WHERE id = ?
		RETURNING ` + bookingColumns

	b, err := scanBooking(r.db.QueryRowContext(ctx, query, date, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bookings.Booking{}, bookings.ErrNotFound
		}
		return bookings.Booking{}, fmt.Errorf("update booking date: %w", err)
	}
	return b, nil
}

func (r *BookingRepository) Delete(ctx context.Context, id string) (bookings.DeleteResult, error) {
	const query = `DELETE FROM bookings WHERE id = ?`

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

func (r *BookingRepository) CountByCar(ctx context.Context, carID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM bookings WHERE car_id = ?`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, carID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return n, nil
}

func (r *BookingRepository) DeleteByCar(ctx context.Context, carID string) (int64, error) {
	const query = `DELETE FROM bookings WHERE car_id = ?`

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

func scanBooking(row rowScanner) (bookings.Booking, error) {
	var (
		b         bookings.Booking
		createdAt int64
	)
	if err := row.Scan(&b.ID, &b.CarID, &b.UserEmail, &b.BookingDate, &createdAt); err != nil {
		return bookings.Booking{}, err
	}
	b.CreatedAt = time.Unix(0, createdAt).UTC()
	return b, nil
}
