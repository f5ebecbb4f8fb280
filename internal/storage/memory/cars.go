package memory

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/carpickup/platform/internal/domain/cars"
)

// CarRepository is an in-memory implementation of cars.Repository and
// consistency.CounterStore. Counter mutations happen under the write lock,
// so they are atomic with respect to each other.
type CarRepository struct {
	mu   sync.RWMutex
	cars map[string]cars.Car
}

// NewCarRepository creates an in-memory car repo.
func NewCarRepository() *CarRepository {
	return &CarRepository{
		cars: make(map[string]cars.Car),
	}
}

func (r *CarRepository) Insert(_ context.Context, car cars.Car) (cars.Car, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	car.ID = newID()
	car.Attributes = cloneAttrs(car.Attributes)
	r.cars[car.ID] = car
	return car, nil
}

func (r *CarRepository) FindByID(_ context.Context, id string) (cars.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cars[id]
	if !ok {
		return cars.Car{}, cars.ErrNotFound
	}
	c.Attributes = cloneAttrs(c.Attributes)
	return c, nil
}

func (r *CarRepository) List(_ context.Context) ([]cars.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.snapshot(func(cars.Car) bool { return true })
	sort.Slice(list, func(i, j int) bool {
		return list[i].DateAdded.Before(list[j].DateAdded)
	})
	return list, nil
}

func (r *CarRepository) ListRecent(_ context.Context, limit int) ([]cars.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.snapshot(func(cars.Car) bool { return true })
	sort.Slice(list, func(i, j int) bool {
		return list[i].DateAdded.After(list[j].DateAdded)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r *CarRepository) ListByOwner(_ context.Context, email string) ([]cars.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.snapshot(func(c cars.Car) bool { return c.OwnerEmail == email })
	sort.Slice(list, func(i, j int) bool {
		return list[i].DateAdded.Before(list[j].DateAdded)
	})
	return list, nil
}

func (r *CarRepository) Update(_ context.Context, id string, fields map[string]any) (cars.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cars[id]
	if !ok {
		return cars.UpdateResult{}, nil
	}

	updated := c
	updated.Attributes = cloneAttrs(c.Attributes)
	for k, v := range fields {
		switch k {
		case "ownerEmail":
			if s, ok := v.(string); ok {
				updated.OwnerEmail = s
			}
		case "bookingStatus":
			if s, ok := v.(string); ok {
				updated.BookingStatus = cars.BookingStatus(s)
			}
		default:
			updated.Attributes[k] = v
		}
	}

	result := cars.UpdateResult{MatchedCount: 1}
	if updated.OwnerEmail != c.OwnerEmail ||
		updated.BookingStatus != c.BookingStatus ||
		!reflect.DeepEqual(updated.Attributes, c.Attributes) {
		result.ModifiedCount = 1
		r.cars[id] = updated
	}
	return result, nil
}

func (r *CarRepository) Delete(_ context.Context, id string) (cars.DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cars[id]; !ok {
		return cars.DeleteResult{}, nil
	}
	delete(r.cars, id)
	return cars.DeleteResult{DeletedCount: 1}, nil
}

// IncrementBookingCount atomically raises the car's counter by one.
func (r *CarRepository) IncrementBookingCount(_ context.Context, carID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cars[carID]
	if !ok {
		return 0, cars.ErrNotFound
	}
	c.BookingCount++
	r.cars[carID] = c
	return c.BookingCount, nil
}

// DecrementBookingCount atomically lowers the counter, floored at zero.
func (r *CarRepository) DecrementBookingCount(_ context.Context, carID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cars[carID]
	if !ok {
		return 0, cars.ErrNotFound
	}
	if c.BookingCount > 0 {
		c.BookingCount--
	}
	r.cars[carID] = c
	return c.BookingCount, nil
}

func (r *CarRepository) UpdateBookingStatus(_ context.Context, carID string, status cars.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cars[carID]
	if !ok {
		return cars.ErrNotFound
	}
	c.BookingStatus = status
	r.cars[carID] = c
	return nil
}

// snapshot copies matching cars; callers must hold at least the read lock.
func (r *CarRepository) snapshot(match func(cars.Car) bool) []cars.Car {
	var list []cars.Car
	for _, c := range r.cars {
		if match(c) {
			c.Attributes = cloneAttrs(c.Attributes)
			list = append(list, c)
		}
	}
	return list
}

func cloneAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
