package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/carpickup/platform/internal/auth"
	"github.com/carpickup/platform/internal/domain/cars"
)

func registerCarRoutes(mux *http.ServeMux, logger *slog.Logger, verifier *auth.Verifier, service cars.Service, recentLimit int) {
	mux.HandleFunc("/cars", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handleCarList(w, r, logger, service)
		case http.MethodPost:
			requireAuth(verifier, func(w http.ResponseWriter, r *http.Request, email string) {
				handleCarCreate(w, r, logger, service, email)
			})(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/cars/", func(w http.ResponseWriter, r *http.Request) {
		remainder := strings.TrimPrefix(r.URL.Path, "/cars/")
		if remainder == "" {
			respondError(w, http.StatusBadRequest, "missing car id")
			return
		}

		if remainder == "recent" {
			if r.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			handleCarListRecent(w, r, logger, service, recentLimit)
			return
		}

		switch r.Method {
		case http.MethodGet:
			handleCarGet(w, r, logger, service, remainder)
		case http.MethodPut:
			requireAuth(verifier, func(w http.ResponseWriter, r *http.Request, _ string) {
				handleCarUpdate(w, r, logger, service, remainder)
			})(w, r)
		case http.MethodDelete:
			requireAuth(verifier, func(w http.ResponseWriter, r *http.Request, _ string) {
				handleCarDelete(w, r, logger, service, remainder)
			})(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/myCars/", requireAuth(verifier, func(w http.ResponseWriter, r *http.Request, email string) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		pathEmail := strings.TrimPrefix(r.URL.Path, "/myCars/")
		if pathEmail == "" {
			respondError(w, http.StatusBadRequest, "missing owner email")
			return
		}
		if pathEmail != email {
			respondError(w, http.StatusForbidden, "Forbidden access")
			return
		}

		handleCarListByOwner(w, r, logger, service, pathEmail)
	}))
}

func handleCarCreate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service cars.Service, ownerEmail string) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	car, err := service.Create(r.Context(), cars.CreateInput{
		Attributes: payload,
		OwnerEmail: ownerEmail,
	})
	if err != nil {
		logger.Error("create car failed", "err", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusCreated, car)
}

func handleCarList(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service cars.Service) {
	list, err := service.List(r.Context())
	if err != nil {
		logger.Error("list cars failed", "err", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, carList(list))
}

func handleCarListRecent(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service cars.Service, limit int) {
	list, err := service.ListRecent(r.Context(), limit)
	if err != nil {
		logger.Error("list recent cars failed", "err", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, carList(list))
}

func handleCarGet(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service cars.Service, id string) {
	car, err := service.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, cars.ErrInvalidID):
			respondError(w, http.StatusBadRequest, "invalid car id")
		case errors.Is(err, cars.ErrNotFound):
			respondError(w, http.StatusNotFound, "car not found")
		default:
			logger.Error("get car failed", "err", err, "car_id", id)
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	respondJSON(w, http.StatusOK, car)
}

func handleCarListByOwner(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service cars.Service, email string) {
	list, err := service.ListByOwner(r.Context(), email)
	if err != nil {
		logger.Error("list cars by owner failed", "err", err, "owner", email)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, carList(list))
}

func handleCarUpdate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service cars.Service, id string) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	result, err := service.Update(r.Context(), id, fields)
	if err != nil {
		if errors.Is(err, cars.ErrInvalidID) {
			respondError(w, http.StatusBadRequest, "invalid car id")
			return
		}
		logger.Error("update car failed", "err", err, "car_id", id)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	message := "car updated"
	if result.ModifiedCount == 0 {
		message = "no changes applied"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": result.ModifiedCount > 0,
		"message": message,
	})
}

func handleCarDelete(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service cars.Service, id string) {
	cascade := r.URL.Query().Get("cascade") == "true"

	result, err := service.Delete(r.Context(), id, cascade)
	if err != nil {
		switch {
		case errors.Is(err, cars.ErrInvalidID):
			respondError(w, http.StatusBadRequest, "invalid car id")
		case errors.Is(err, cars.ErrHasBookings):
			respondError(w, http.StatusConflict, "car has active bookings")
		default:
			logger.Error("delete car failed", "err", err, "car_id", id)
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// carList keeps empty results as [] instead of null on the wire.
func carList(list []cars.Car) []cars.Car {
	if list == nil {
		return []cars.Car{}
	}
	return list
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// If encoding fails there's not much we can do; log to stderr.
		slog.Default().Error("failed to encode response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
