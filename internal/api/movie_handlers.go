package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"streamreview/internal/access"
	"streamreview/internal/domain"
	"streamreview/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// MovieListResponse is the paginated movie listing.
type MovieListResponse struct {
	Items      []*domain.Movie `json:"items"`
	NextCursor *string         `json:"next_cursor,omitempty"`
}

// encodeCursor encodes an offset into a base64 cursor string.
func encodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// decodeCursor decodes a base64 cursor string back to an offset.
func decodeCursor(cursor string) (int, error) {
	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor encoding: %w", err)
	}
	offset, err := strconv.Atoi(string(decoded))
	if err != nil {
		return 0, fmt.Errorf("invalid cursor format: %w", err)
	}
	return offset, nil
}

// ListMovies handles GET /api/movie/ with cursor pagination, field filtering
// and free-text search.
func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	queryParams := r.URL.Query()

	offset := 0
	if cursor := queryParams.Get("cursor"); cursor != "" {
		var err error
		offset, err = decodeCursor(cursor)
		if err != nil || offset < 0 {
			h.respondError(w, r, http.StatusBadRequest, "Invalid cursor")
			return
		}
	}

	limit, _ := strconv.Atoi(queryParams.Get("limit"))
	if limit <= 0 {
		limit = 10
	} else if limit > 50 {
		limit = 50
	}

	params := store.MovieListParams{
		PlatformID: queryParams.Get("platform"),
		Search:     queryParams.Get("search"),
		Limit:      limit,
		Offset:     offset,
	}
	if activeParam := queryParams.Get("active"); activeParam != "" {
		active, err := strconv.ParseBool(activeParam)
		if err != nil {
			h.respondError(w, r, http.StatusBadRequest, "Invalid active filter, expected true or false")
			return
		}
		params.Active = &active
	}

	movies, hasMore, err := h.movies.List(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list movies", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve movies")
		return
	}

	for _, movie := range movies {
		reviews, err := h.reviews.ListByMovieID(ctx, movie.ID, "")
		if err != nil {
			h.logger.ErrorContext(ctx, "Failed to list reviews for movie listing",
				slog.String("movieID", movie.ID), slog.String("error", err.Error()))
			h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve movies")
			return
		}
		movie.Reviews = reviews
	}

	response := &MovieListResponse{Items: movies}
	if hasMore {
		next := encodeCursor(offset + limit)
		response.NextCursor = &next
	}
	h.respondJSON(w, r, http.StatusOK, response)
}

// GetMovie handles GET /api/movie/{movieId}, nesting the movie's reviews.
func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := mux.Vars(r)["movieId"]

	movie, err := h.movies.GetByID(ctx, movieID)
	if err != nil {
		if errors.Is(err, store.ErrMovieNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Movie not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to get movie", slog.String("movieID", movieID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve movie")
		return
	}

	reviews, err := h.reviews.ListByMovieID(ctx, movieID, "")
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list reviews for movie",
			slog.String("movieID", movieID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve movie")
		return
	}
	movie.Reviews = reviews

	h.respondJSON(w, r, http.StatusOK, movie)
}

// CreateMovie handles POST /api/movie/. Admin only.
func (h *Handler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller := CallerFromContext(ctx)
	if !access.CanManageCatalog(caller) {
		h.respondError(w, r, http.StatusForbidden, "Administrator privilege required")
		return
	}

	var req domain.CreateMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	movie := &domain.Movie{
		ID:         uuid.NewString(),
		Title:      req.Title,
		Storyline:  req.Storyline,
		PlatformID: req.PlatformID,
		Active:     active,
		Reviews:    []*domain.Review{},
	}
	if err := h.movies.Create(ctx, movie); err != nil {
		if errors.Is(err, store.ErrPlatformNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Platform not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to create movie in store", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to create movie")
		return
	}

	h.logger.InfoContext(ctx, "Movie created", slog.String("movieID", movie.ID), slog.String("title", movie.Title))
	h.respondJSON(w, r, http.StatusCreated, movie)
}

// UpdateMovie handles PUT /api/movie/{movieId}. Admin only. Rating statistics
// are not writable here.
func (h *Handler) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := mux.Vars(r)["movieId"]

	caller := CallerFromContext(ctx)
	if !access.CanManageCatalog(caller) {
		h.respondError(w, r, http.StatusForbidden, "Administrator privilege required")
		return
	}

	var req domain.UpdateMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	existing, err := h.movies.GetByID(ctx, movieID)
	if err != nil {
		if errors.Is(err, store.ErrMovieNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Movie not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to get movie for update",
			slog.String("movieID", movieID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to update movie")
		return
	}

	existing.Title = req.Title
	existing.Storyline = req.Storyline
	existing.PlatformID = req.PlatformID
	if req.Active != nil {
		existing.Active = *req.Active
	}
	existing.Reviews = nil

	if err := h.movies.Update(ctx, existing); err != nil {
		switch {
		case errors.Is(err, store.ErrMovieNotFound):
			h.respondError(w, r, http.StatusNotFound, "Movie not found")
		case errors.Is(err, store.ErrPlatformNotFound):
			h.respondError(w, r, http.StatusNotFound, "Platform not found")
		default:
			h.logger.ErrorContext(ctx, "Failed to update movie in store",
				slog.String("movieID", movieID), slog.String("error", err.Error()))
			h.respondError(w, r, http.StatusInternalServerError, "Failed to update movie")
		}
		return
	}

	h.logger.InfoContext(ctx, "Movie updated", slog.String("movieID", movieID))
	h.respondJSON(w, r, http.StatusOK, existing)
}

// DeleteMovie handles DELETE /api/movie/{movieId}. Admin only; the movie's
// reviews are removed with it.
func (h *Handler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := mux.Vars(r)["movieId"]

	caller := CallerFromContext(ctx)
	if !access.CanManageCatalog(caller) {
		h.respondError(w, r, http.StatusForbidden, "Administrator privilege required")
		return
	}

	if err := h.movies.Delete(ctx, movieID); err != nil {
		if errors.Is(err, store.ErrMovieNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Movie not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to delete movie",
			slog.String("movieID", movieID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to delete movie")
		return
	}

	h.logger.InfoContext(ctx, "Movie deleted with cascade", slog.String("movieID", movieID))
	h.respondJSON(w, r, http.StatusNoContent, nil)
}
