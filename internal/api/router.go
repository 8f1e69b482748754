package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires all endpoints under /api. Reads are public; every write
// goes through RequireAuth, with the per-operation capability checks inside
// the handlers.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	apiRouter := router.PathPrefix("/api").Subrouter()

	// Identity
	apiRouter.HandleFunc("/auth/register", h.RegisterUser).Methods(http.MethodPost)
	apiRouter.HandleFunc("/auth/login", h.LoginUser).Methods(http.MethodPost)

	// Streaming platforms (admin-only write, public read)
	apiRouter.HandleFunc("/stream/", h.ListPlatforms).Methods(http.MethodGet)
	apiRouter.Handle("/stream/", h.RequireAuth(http.HandlerFunc(h.CreatePlatform))).Methods(http.MethodPost)
	apiRouter.HandleFunc("/stream/{platformId}", h.GetPlatform).Methods(http.MethodGet)
	apiRouter.Handle("/stream/{platformId}", h.RequireAuth(http.HandlerFunc(h.UpdatePlatform))).Methods(http.MethodPut)
	apiRouter.Handle("/stream/{platformId}", h.RequireAuth(http.HandlerFunc(h.DeletePlatform))).Methods(http.MethodDelete)

	// Movies (admin-only write, public read, cursor-paginated listing)
	apiRouter.HandleFunc("/movie/", h.ListMovies).Methods(http.MethodGet)
	apiRouter.Handle("/movie/", h.RequireAuth(http.HandlerFunc(h.CreateMovie))).Methods(http.MethodPost)
	apiRouter.HandleFunc("/movie/{movieId}", h.GetMovie).Methods(http.MethodGet)
	apiRouter.Handle("/movie/{movieId}", h.RequireAuth(http.HandlerFunc(h.UpdateMovie))).Methods(http.MethodPut)
	apiRouter.Handle("/movie/{movieId}", h.RequireAuth(http.HandlerFunc(h.DeleteMovie))).Methods(http.MethodDelete)

	// Reviews: submission is scoped to a movie, mutation to the review itself
	apiRouter.HandleFunc("/movie/{movieId}/reviews/", h.ListReviewsForMovie).Methods(http.MethodGet)
	apiRouter.Handle("/movie/{movieId}/review/create", h.RequireAuth(http.HandlerFunc(h.CreateReview))).Methods(http.MethodPost)

	apiRouter.HandleFunc("/review", h.ListReviewsByUsername).Methods(http.MethodGet)
	apiRouter.HandleFunc("/review/{reviewId}", h.GetReview).Methods(http.MethodGet)
	apiRouter.Handle("/review/{reviewId}", h.RequireAuth(http.HandlerFunc(h.UpdateReview))).Methods(http.MethodPut)
	apiRouter.Handle("/review/{reviewId}", h.RequireAuth(http.HandlerFunc(h.DeleteReview))).Methods(http.MethodDelete)

	return router
}
