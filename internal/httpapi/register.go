package httpapi

import (
	"net/http"

	"log/slog"

	"github.com/carpickup/platform/internal/auth"
	"github.com/carpickup/platform/internal/domain"
)

// Register attaches API routes to the provided mux. Identity on protected
// routes comes exclusively from the verified bearer token; request bodies
// are never trusted for it.
func Register(mux *http.ServeMux, logger *slog.Logger, verifier *auth.Verifier, domainServices domain.Container, recentLimit int) {
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("CarPickUp server is running"))
	})

	registerAuthRoutes(mux, logger, verifier)
	registerCarRoutes(mux, logger, verifier, domainServices.Cars, recentLimit)
	registerBookingRoutes(mux, logger, verifier, domainServices.Bookings)
}
