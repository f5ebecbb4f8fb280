package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carpickup/platform/internal/domain/cars"
)

// CarRepository persists cars in SQLite. Timestamps are stored as
// nanosecond epochs so recency ordering keeps sub-second precision.
// Like the postgres variant it implements consistency.CounterStore with
// single-statement relative deltas.
type CarRepository struct {
	db *sql.DB
}

// NewCarRepository constructs the repository.
func NewCarRepository(db *sql.DB) *CarRepository {
	return &CarRepository{db: db}
}

const carColumns = "id, owner_email, booking_status, booking_count, attributes, date_added"

func (r *CarRepository) Insert(ctx context.Context, car cars.Car) (cars.Car, error) {
	const query = `
		INSERT INTO cars (id, owner_email, booking_status, booking_count, attributes, date_added)
		VALUES (?, ?, ?, ?, ?, ?)
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
		string(attrs),
		car.DateAdded.UnixNano(),
	); err != nil {
		return cars.Car{}, fmt.Errorf("insert car: %w", err)
	}
	return car, nil
}

func (r *CarRepository) FindByID(ctx context.Context, id string) (cars.Car, error) {
	const query = `SELECT ` + carColumns + ` FROM cars WHERE id = ?`

	car, err := scanCar(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cars.Car{}, cars.ErrNotFound
		}
		return cars.Car{}, fmt.Errorf("find car: %w", err)
	}
	return car, nil
}

func (r *CarRepository) List(ctx context.Context) ([]cars.Car, error) {
	const query = `SELECT ` + carColumns + ` FROM cars ORDER BY date_added`
	return r.queryCars(ctx, query)
}

func (r *CarRepository) ListRecent(ctx context.Context, limit int) ([]cars.Car, error) {
	const query = `SELECT ` + carColumns + ` FROM cars ORDER BY date_added DESC LIMIT ?`
	return r.queryCars(ctx, query, limit)
}

func (r *CarRepository) ListByOwner(ctx context.Context, email string) ([]cars.Car, error) {
	const query = `SELECT ` + carColumns + ` FROM cars WHERE owner_email = ? ORDER BY date_added`
	return r.queryCars(ctx, query, email)
}

func (r *CarRepository) Update(ctx context.Context, id string, fields map[string]any) (cars.UpdateResult, error) {
	var sets []string
	var args []any

	attrPatch := make(map[string]any)
	for k, v := range fields {
		switch k {
		case "ownerEmail":
			sets = append(sets, "owner_email = ?")
			args = append(args, v)
		case "bookingStatus":
			sets = append(sets, "booking_status = ?")
			args = append(args, v)
		default:
			attrPatch[k] = v
		}
	}

	if len(attrPatch) > 0 {
		patch, err := json.Marshal(attrPatch)
		if err != nil {
			return cars.UpdateResult{}, fmt.Errorf("marshal attribute patch: %w", err)
		}
		sets = append(sets, "attributes = json_patch(attributes, ?)")
		args = append(args, string(patch))
	}

	if len(sets) == 0 {
		return cars.UpdateResult{}, nil
	}

	query := "UPDATE cars SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)

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

func (r *CarRepository) Delete(ctx context.Context, id string) (cars.DeleteResult, error) {
	const query = `DELETE FROM cars WHERE id = ?`

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
		 WHERE id = ?
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
		UPDATE cars SET booking_count = MAX(booking_count - 1, 0)
		 WHERE id = ?
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

func (r *CarRepository) UpdateBookingStatus(ctx context.Context, carID string, status cars.BookingStatus) error {
	const query = `UPDATE cars SET booking_status = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, string(status), carID); err != nil {
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
		c         cars.Car
		status    string
		attrs     string
		dateAdded int64
	)
	if err := row.Scan(&c.ID, &c.OwnerEmail, &status, &c.BookingCount, &attrs, &dateAdded); err != nil {
		return cars.Car{}, err
	}
	c.BookingStatus = cars.BookingStatus(status)
	c.DateAdded = time.Unix(0, dateAdded).UTC()
	if attrs != "" {
		if err := json.Unmarshal([]byte(attrs), &c.Attributes); err != nil {
			return cars.Car{}, fmt.Errorf("unmarshal attributes: %w", err)
		}
	}
	return c, nil
}
