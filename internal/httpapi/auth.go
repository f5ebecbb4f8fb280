package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"log/slog"

	"github.com/carpickup/platform/internal/auth"
)

func registerAuthRoutes(mux *http.ServeMux, logger *slog.Logger, verifier *auth.Verifier) {
	mux.HandleFunc("/jwt", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var payload struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}

		payload.Email = strings.TrimSpace(payload.Email)
		if payload.Email == "" {
			respondError(w, http.StatusBadRequest, "email is required")
			return
		}

		token, err := verifier.Issue(payload.Email)
		if err != nil {
			logger.Error("token issue failed", "err", err)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"token":   token,
		})
	})
}

// authedHandler receives the verified requester email alongside the request.
type authedHandler func(w http.ResponseWriter, r *http.Request, email string)

// requireAuth extracts and verifies the bearer token before invoking next.
// Status codes follow the auth contract: 401 for a missing token, 403 for a
// bad one.
func requireAuth(verifier *auth.Verifier, next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if header == "" || len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			respondError(w, http.StatusUnauthorized, "Unauthorized access")
			return
		}

		email, err := verifier.Verify(parts[1])
		if err != nil {
			respondError(w, http.StatusForbidden, "Forbidden access")
			return
		}

		next(w, r, email)
	}
}
