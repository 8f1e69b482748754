package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"streamreview/internal/store"
	"streamreview/pkg/auth"

	"github.com/go-playground/validator/v10"
)

// Handler carries the dependencies shared by every HTTP handler.
type Handler struct {
	users        store.UserStore
	platforms    store.PlatformStore
	movies       store.MovieStore
	reviews      store.ReviewStore
	logger       *slog.Logger
	validator    *validator.Validate
	tokenManager auth.TokenManager
}

// NewHandler creates a Handler.
func NewHandler(
	users store.UserStore,
	platforms store.PlatformStore,
	movies store.MovieStore,
	reviews store.ReviewStore,
	logger *slog.Logger,
	v *validator.Validate,
	tm auth.TokenManager,
) *Handler {
	return &Handler{
		users:        users,
		platforms:    platforms,
		movies:       movies,
		reviews:      reviews,
		logger:       logger,
		validator:    v,
		tokenManager: tm,
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.ErrorContext(r.Context(), "Failed to encode JSON response",
				slog.String("error", err.Error()), slog.String("path", r.URL.Path))
		}
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.respondJSON(w, r, status, map[string]string{"error": message})
}
