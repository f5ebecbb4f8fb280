package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carpickup/platform/internal/domain/cars"
)

// CarRepository persists cars in Postgres. It also implements
// consistency.CounterStore: the counter methods are single UPDATE
// statements applying a relative delta, so concurrent bookings on the same
// car serialize at the row and never lose an update.
type CarRepository struct {
	db *sql.DB
}

// NewCarRepository constructs the repository.
func NewCarRepository(db *sql.DB) *CarRepository {
	return &CarRepository{db: db}
}

const carColumns = "id, owner_email, booking_status, booking_count, attributes, date_added"

// Insert stores a new car, assigning its identifier.
func (r *CarRepository) Insert(ctx context.Context, car cars.Car) (cars.Car, error) {
	const query = `
        INSERT INTO cars (id, owner_email, booking_status, booking_count, attributes, date_added)
        VALUES ($1, $2, $3, $4, $5, $6)
    `

	car.ID = uuid.NewString()
	attrs, err := json.Marshal(car.Attributes)
	if err != nil {
		return cars.Car{}, fmt.Errorf("marshal attributes: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query,
		car.ID,
		car.OwnerEmail,
		string(car.BookingStatus),
		car.BookingCount,
		attrs,
		car.DateAdded,
	); err != nil {
		return cars.Car{}, fmt.Errorf("insert car: %w", err)
	}

	return car, nil
}

// FindByID fetches a car by identifier.
func (r *CarRepository) FindByID(ctx context.Context, id string) (cars.Car, error) {
	const query = `SELECT ` + carColumns + ` FROM cars WHERE id = $1`

	car, err := scanCar(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cars.Car{}, cars.ErrNotFound
		}
		return cars.Car{}, fmt.Errorf("find car: %w", err)
	}
	return car, nil
}

// List returns all cars in natural insertion order.
func (r *CarRepository) List(ctx context.Context) ([]cars.Car, error) {
	const query = `SELECT ` + carColumns + ` FROM cars ORDER BY date_added`
	return r.queryCars(ctx, query)
}

// ListRecent returns the newest cars by date_added.
func (r *CarRepository) ListRecent(ctx context.Context, limit int) ([]cars.Car, error) {
	const query = `SELECT ` + carColumns + ` FROM cars ORDER BY date_added DESC LIMIT $1`
	return r.queryCars(ctx, query, limit)
}

// ListByOwner returns cars with an exact owner email match.
func (r *CarRepository) ListByOwner(ctx context.Context, email string) ([]cars.Car, error) {
	const query = `SELECT ` + carColumns + ` FROM cars WHERE owner_email = $1 ORDER BY date_added`
	return r.queryCars(ctx, query, email)
}

// Update applies partial fields. The managed columns owner_email and
// booking_status update in place; everything else merges into the opaque
// attributes document.
func (r *CarRepository) Update(ctx context.Context, id string, fields map[string]any) (cars.UpdateResult, error) {
	var sets []string
	args := []any{id}

	attrPatch := make(map[string]any)
	for k, v := range fields {
		switch k {
		case "ownerEmail":
			args = append(args, v)
			sets = append(sets, fmt.Sprintf("owner_email = $%d", len(args)))
		case "bookingStatus":
			args = append(args, v)
			sets = append(sets, fmt.Sprintf("booking_status = $%d", len(args)))
		default:
			attrPatch[k] = v
		}
	}

	if len(attrPatch) > 0 {
		patch, err := json.Marshal(attrPatch)
		if err != nil {
			return cars.UpdateResult{}, fmt.Errorf("marshal attribute patch: %w", err)
		}
		args = append(args, patch)
		sets = append(sets, fmt.Sprintf("attributes = attributes || $%d::jsonb", len(args)))
	}

	if len(sets) == 0 {
		return cars.UpdateResult{}, nil
	}

	query := "UPDATE cars SET " + strings.Join(sets, ", ") + " WHERE id = $1"
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return cars.UpdateResult{}, fmt.Errorf("update car: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return cars.UpdateResult{}, fmt.Errorf("update car rows: %w", err)
	}
	return cars.UpdateResult{MatchedCount: n, ModifiedCount: n}, nil
}

// Delete removes a car; deleting an absent id reports zero rows.
func (r *CarRepository) Delete(ctx context.Context, id string) (cars.DeleteResult, error) {
	const query = `DELETE FROM cars WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return cars.DeleteResult{}, fmt.Errorf("delete car: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return cars.DeleteResult{}, fmt.Errorf("delete car rows: %w", err)
	}
	return cars.DeleteResult{DeletedCount: n}, nil
}

// IncrementBookingCount applies an atomic +1 delta and returns the new count.
func (r *CarRepository) IncrementBookingCount(ctx context.Context, carID string) (int64, error) {
	const query = `
        UPDATE cars SET booking_count = booking_count + 1
         WHERE id = $1
        RETURNING booking_count
    `

	var count int64
	if err := r.db.QueryRowContext(ctx, query, carID).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, cars.ErrNotFound
		}
		return 0, fmt.Errorf("increment booking count: %w", err)
	}
	return count, nil
}

// DecrementBookingCount applies an atomic -1 delta floored at zero.
func (r *CarRepository) DecrementBookingCount(ctx context.Context, carID string) (int64, error) {
	const query = `
        UPDATE cars SET booking_count = GREATEST(booking_count - 1, 0)
         WHERE id = $1
        RETURNING booking_count
    `

	var count int64
	if err := r.db.QueryRowContext(ctx, query, carID).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, cars.ErrNotFound
		}
		return 0, fmt.Errorf("decrement booking count: %w", err)
	}
	return count, nil
}

// UpdateBookingStatus sets the coarse availability flag.
func (r *CarRepository) UpdateBookingStatus(ctx context.Context, carID string, status cars.BookingStatus) error {
	const query = `UPDATE cars SET booking_status = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, carID, string(status)); err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

func (r *CarRepository) queryCars(ctx context.Context, query string, args ...any) ([]cars.Car, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	defer rows.Close()

	var result []cars.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		result = append(result, car)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCar(row rowScanner) (cars.Car, error) {
	var (
		c      cars.Car
		status string
		attrs  []byte
	)
	if err := row.Scan(&c.ID, &c.OwnerEmail, &status, &c.BookingCount, &attrs, &c.DateAdded); err != nil {
		return cars.Car{}, err
	}
	c.BookingStatus = cars.BookingStatus(status)
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &c.Attributes); err != nil {
			return cars.Car{}, fmt.Errorf("unmarshal attributes: %w", err)
		}
	}
	return c, nil
}
