package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"streamreview/internal/access"
	"streamreview/internal/domain"
	"streamreview/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// nestPlatform fills the platform's read-only nested representation: its
// movies, each with their reviews.
func (h *Handler) nestPlatform(ctx context.Context, platform *domain.Platform) error {
	movies, err := h.movies.ListByPlatformID(ctx, platform.ID)
	if err != nil {
		return err
	}
	for _, movie := range movies {
		reviews, err := h.reviews.ListByMovieID(ctx, movie.ID, "")
		if err != nil {
			return err
		}
		movie.Reviews = reviews
	}
	platform.Movies = movies
	return nil
}

// ListPlatforms handles GET /api/stream/.
func (h *Handler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	platforms, err := h.platforms.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list platforms", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve platforms")
		return
	}
	for _, platform := range platforms {
		if err := h.nestPlatform(ctx, platform); err != nil {
			h.logger.ErrorContext(ctx, "Failed to assemble nested platform representation",
				slog.String("platformID", platform.ID), slog.String("error", err.Error()))
			h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve platforms")
			return
		}
	}
	h.respondJSON(w, r, http.StatusOK, platforms)
}

// GetPlatform handles GET /api/stream/{platformId}.
func (h *Handler) GetPlatform(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	platformID := mux.Vars(r)["platformId"]

	platform, err := h.platforms.GetByID(ctx, platformID)
	if err != nil {
		if errors.Is(err, store.ErrPlatformNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Platform not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to get platform", slog.String("platformID", platformID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve platform")
		return
	}
	if err := h.nestPlatform(ctx, platform); err != nil {
		h.logger.ErrorContext(ctx, "Failed to assemble nested platform representation",
			slog.String("platformID", platformID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve platform")
		return
	}
	h.respondJSON(w, r, http.StatusOK, platform)
}

// CreatePlatform handles POST /api/stream/. Admin only.
func (h *Handler) CreatePlatform(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller := CallerFromContext(ctx)
	if !access.CanManageCatalog(caller) {
		h.respondError(w, r, http.StatusForbidden, "Administrator privilege required")
		return
	}

	var req domain.CreatePlatformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	platform := &domain.Platform{
		ID:      uuid.NewString(),
		Name:    req.Name,
		About:   req.About,
		Website: req.Website,
		Movies:  []*domain.Movie{},
	}
	if err := h.platforms.Create(ctx, platform); err != nil {
		h.logger.ErrorContext(ctx, "Failed to create platform in store", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to create platform")
		return
	}

	h.logger.InfoContext(ctx, "Platform created", slog.String("platformID", platform.ID), slog.String("name", platform.Name))
	h.respondJSON(w, r, http.StatusCreated, platform)
}

// UpdatePlatform handles PUT /api/stream/{platformId}. Admin only.
func (h *Handler) UpdatePlatform(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	platformID := mux.Vars(r)["platformId"]

	caller := CallerFromContext(ctx)
	if !access.CanManageCatalog(caller) {
		h.respondError(w, r, http.StatusForbidden, "Administrator privilege required")
		return
	}

	var req domain.UpdatePlatformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	platform := &domain.Platform{
		ID:      platformID,
		Name:    req.Name,
		About:   req.About,
		Website: req.Website,
	}
	if err := h.platforms.Update(ctx, platform); err != nil {
		if errors.Is(err, store.ErrPlatformNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Platform not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to update platform in store",
			slog.String("platformID", platformID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to update platform")
		return
	}

	h.logger.InfoContext(ctx, "Platform updated", slog.String("platformID", platformID))
	h.respondJSON(w, r, http.StatusOK, platform)
}

// DeletePlatform handles DELETE /api/stream/{platformId}. Admin only; the
// platform's movies and their reviews are removed with it.
func (h *Handler) DeletePlatform(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	platformID := mux.Vars(r)["platformId"]

	caller := CallerFromContext(ctx)
	if !access.CanManageCatalog(caller) {
		h.respondError(w, r, http.StatusForbidden, "Administrator privilege required")
		return
	}

	if err := h.platforms.Delete(ctx, platformID); err != nil {
		if errors.Is(err, store.ErrPlatformNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Platform not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to delete platform",
			slog.String("platformID", platformID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to delete platform")
		return
	}

	h.logger.InfoContext(ctx, "Platform deleted with cascade", slog.String("platformID", platformID))
	h.respondJSON(w, r, http.StatusNoContent, nil)
}
