package api

import (
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

// CreateReview handles POST /api/movie/{movieId}/review/create — the review
// submission protocol. The rating range is validated before the movie is ever
// looked up; the duplicate check, the aggregate update and the review insert
// happen inside the store's single serialized scope.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := mux.Vars(r)["movieId"]
	caller := CallerFromContext(ctx)

	var req domain.CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.logger.WarnContext(ctx, "Review request validation failed", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	review := &domain.Review{
		ID:          uuid.NewString(),
		MovieID:     movieID,
		UserID:      caller.ID,
		ReviewUser:  caller.Username,
		Rating:      req.Rating,
		Description: req.Description,
	}

	if err := h.reviews.SubmitReview(ctx, review); err != nil {
		switch {
		case errors.Is(err, store.ErrMovieNotFound):
			h.respondError(w, r, http.StatusNotFound, "Movie not found")
		case errors.Is(err, store.ErrDuplicateReview):
			h.respondError(w, r, http.StatusBadRequest, "You have already reviewed this movie")
		default:
			h.logger.ErrorContext(ctx, "Failed to submit review",
				slog.String("movieID", movieID), slog.String("userID", caller.ID),
				slog.String("error", err.Error()))
			h.respondError(w, r, http.StatusInternalServerError, "Failed to create review")
		}
		return
	}

	h.logger.InfoContext(ctx, "Review created",
		slog.String("reviewID", review.ID), slog.String("movieID", movieID),
		slog.String("userID", caller.ID), slog.Int("rating", review.Rating))
	h.respondJSON(w, r, http.StatusCreated, review)
}

// ListReviewsForMovie handles GET /api/movie/{movieId}/reviews/ with an
// optional ?search= filter on the reviewer's username.
func (h *Handler) ListReviewsForMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := mux.Vars(r)["movieId"]
	search := r.URL.Query().Get("search")

	if _, err := h.movies.GetByID(ctx, movieID); err != nil {
		if errors.Is(err, store.ErrMovieNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Movie not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to check movie for review listing",
			slog.String("movieID", movieID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve reviews")
		return
	}

	reviews, err := h.reviews.ListByMovieID(ctx, movieID, search)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list reviews by movieID",
			slog.String("movieID", movieID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve reviews")
		return
	}
	h.respondJSON(w, r, http.StatusOK, reviews)
}

// ListReviewsByUsername handles GET /api/review?username=X. An unknown
// username yields an empty list, not an error.
func (h *Handler) ListReviewsByUsername(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := r.URL.Query().Get("username")

	reviews, err := h.reviews.ListByUsername(ctx, username)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list reviews by username",
			slog.String("username", username), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve reviews")
		return
	}
	h.respondJSON(w, r, http.StatusOK, reviews)
}

// GetReview handles GET /api/review/{reviewId}.
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reviewID := mux.Vars(r)["reviewId"]

	review, err := h.reviews.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Review not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to get review",
			slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve review")
		return
	}
	h.respondJSON(w, r, http.StatusOK, review)
}

// UpdateReview handles PUT /api/review/{reviewId}. Owner or admin only. The
// movie's rating aggregate is deliberately NOT recomputed on edit.
func (h *Handler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reviewID := mux.Vars(r)["reviewId"]
	caller := CallerFromContext(ctx)

	var req domain.UpdateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	review, err := h.reviews.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Review not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to get review for update",
			slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to update review")
		return
	}

	if !access.CanMutateReview(caller, review) {
		h.logger.WarnContext(ctx, "Caller not allowed to update review",
			slog.String("reviewID", reviewID), slog.String("callerID", caller.ID))
		h.respondError(w, r, http.StatusForbidden, "You do not have permission to modify this review")
		return
	}

	review.Rating = req.Rating
	review.Description = req.Description
	if req.Active != nil {
		review.Active = *req.Active
	}

	if err := h.reviews.Update(ctx, review); err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Review not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to update review in store",
			slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to update review")
		return
	}

	h.logger.InfoContext(ctx, "Review updated", slog.String("reviewID", reviewID), slog.String("callerID", caller.ID))
	h.respondJSON(w, r, http.StatusOK, review)
}

// DeleteReview handles DELETE /api/review/{reviewId}. Owner or admin only.
// The movie's rating aggregate is deliberately NOT recomputed on delete.
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reviewID := mux.Vars(r)["reviewId"]
	caller := CallerFromContext(ctx)

	review, err := h.reviews.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Review not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to get review for delete",
			slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to delete review")
		return
	}

	if !access.CanMutateReview(caller, review) {
		h.logger.WarnContext(ctx, "Caller not allowed to delete review",
			slog.String("reviewID", reviewID), slog.String("callerID", caller.ID))
		h.respondError(w, r, http.StatusForbidden, "You do not have permission to modify this review")
		return
	}

	if err := h.reviews.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Review not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to delete review from store",
			slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to delete review")
		return
	}

	h.logger.InfoContext(ctx, "Review deleted", slog.String("reviewID", reviewID), slog.String("callerID", caller.ID))
	h.respondJSON(w, r, http.StatusNoContent, nil)
}
