package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/carpickup/platform/internal/auth"
	"github.com/carpickup/platform/internal/domain/bookings"
)

func registerBookingRoutes(mux *http.ServeMux, logger *slog.Logger, verifier *auth.Verifier, service bookings.Service) {
	mux.HandleFunc("/bookings", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			requireAuth(verifier, func(w http.ResponseWriter, r *http.Request, email string) {
				handleBookingCreate(w, r, logger, service, email)
			})(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// GET takes an email path segment, PATCH and DELETE a booking id.
	mux.HandleFunc("/bookings/", func(w http.ResponseWriter, r *http.Request) {
		remainder := strings.TrimPrefix(r.URL.Path, "/bookings/")
		if remainder == "" {
			respondError(w, http.StatusBadRequest, "missing path parameter")
			return
		}

		switch r.Method {
		case http.MethodGet:
			requireAuth(verifier, func(w http.ResponseWriter, r *http.Request, email string) {
				if remainder != email {
					respondError(w, http.StatusForbidden, "Forbidden access")
					return
				}
				handleBookingListByUser(w, r, logger, service, remainder)
			})(w, r)
		case http.MethodPatch:
			requireAuth(verifier, func(w http.ResponseWriter, r *http.Request, _ string) {
				handleBookingReschedule(w, r, logger, service, remainder)
			})(w, r)
		case http.MethodDelete:
			requireAuth(verifier, func(w http.ResponseWriter, r *http.Request, _ string) {
				handleBookingCancel(w, r, logger, service, remainder)
			})(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func handleBookingCreate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service bookings.Service, userEmail string) {
	var payload struct {
		CarID       string `json:"carId"`
		BookingDate string `json:"bookingDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	result, err := service.Create(r.Context(), bookings.CreateInput{
		CarID:       payload.CarID,
		BookingDate: payload.BookingDate,
	}, userEmail)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrInvalidCarID):
			respondError(w, http.StatusBadRequest, "invalid car id")
		case errors.Is(err, bookings.ErrDateRequired):
			respondError(w, http.StatusBadRequest, "bookingDate is required")
		case errors.Is(err, bookings.ErrCarNotFound):
			respondError(w, http.StatusNotFound, "car not found")
		case result.Booking.ID != "":
			// The booking landed but the counter write did not; report
			// the partial outcome instead of pretending nothing happened.
			logger.Error("booking counter update failed", "err", err, "booking_id", result.Booking.ID)
			respondJSON(w, http.StatusInternalServerError, map[string]any{
				"message":       "booking recorded but counter update failed",
				"bookingResult": result.Booking,
				"updateResult":  counterResult(false),
			})
		default:
			logger.Error("create booking failed", "err", err)
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message":       "booking confirmed",
		"bookingResult": result.Booking,
		"updateResult":  counterResult(result.CounterUpdated),
	})
}

func handleBookingListByUser(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service bookings.Service, email string) {
	list, err := service.ListByUser(r.Context(), email)
	if err != nil {
		logger.Error("list bookings failed", "err", err, "user", email)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if list == nil {
		list = []bookings.Booking{}
	}
	respondJSON(w, http.StatusOK, list)
}

func handleBookingReschedule(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service bookings.Service, id string) {
	var payload struct {
		BookingDate string `json:"bookingDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	booking, err := service.Reschedule(r.Context(), id, payload.BookingDate)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrInvalidID):
			respondError(w, http.StatusBadRequest, "invalid booking id")
		case errors.Is(err, bookings.ErrDateRequired):
			respondError(w, http.StatusBadRequest, "bookingDate is required")
		case errors.Is(err, bookings.ErrNotFound):
			respondError(w, http.StatusNotFound, "booking not found")
		default:
			logger.Error("reschedule booking failed", "err", err, "booking_id", id)
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "booking rescheduled",
		"booking": booking,
	})
}

func handleBookingCancel(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service bookings.Service, id string) {
	result, err := service.Cancel(r.Context(), id)
	if err != nil {
		if errors.Is(err, bookings.ErrInvalidID) {
			respondError(w, http.StatusBadRequest, "invalid booking id")
			return
		}
		logger.Error("cancel booking failed", "err", err, "booking_id", id)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func counterResult(updated bool) map[string]any {
	modified := int64(0)
	if updated {
		modified = 1
	}
	return map[string]any{
		"matchedCount":  modified,
		"modifiedCount": modified,
	}
}
