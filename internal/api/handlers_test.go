package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamreview/internal/domain"
	"streamreview/internal/store"
	"streamreview/pkg/auth"
)

type testEnv struct {
	router *mux.Router
	mem    *store.MemoryStore
	tokens auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tm, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	mem := store.NewMemoryStore()
	h := NewHandler(mem.Users(), mem.Platforms(), mem.Movies(), mem.Reviews(), logger, validator.New(), tm)
	return &testEnv{router: NewRouter(h), mem: mem, tokens: tm}
}

// do fires a request through the full router. A non-empty token is sent as a
// Bearer credential; a non-nil body is JSON-encoded.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// seedUser stores a user directly and returns a valid token for them.
func (e *testEnv) seedUser(t *testing.T, username, role string) (userID, token string) {
	t.Helper()
	user := &domain.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	}
	require.NoError(t, e.mem.Users().Create(context.Background(), user))
	token, err := e.tokens.Generate(user.ID, user.Username, user.Role)
	require.NoError(t, err)
	return user.ID, token
}

// seedCatalog stores a platform with one movie on it.
func (e *testEnv) seedCatalog(t *testing.T, title string) (platformID, movieID string) {
	t.Helper()
	platform := &domain.Platform{ID: uuid.NewString(), Name: "Netplex", About: "Streaming", Website: "https://netplex.example.com"}
	require.NoError(t, e.mem.Platforms().Create(context.Background(), platform))
	movie := &domain.Movie{ID: uuid.NewString(), Title: title, Storyline: "A storyline", PlatformID: platform.ID, Active: true}
	require.NoError(t, e.mem.Movies().Create(context.Background(), movie))
	return platform.ID, movie.ID
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body["error"]
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	register := domain.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret123"}
	w := env.do(t, http.MethodPost, "/api/auth/register", "", register)
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	var created domain.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, domain.RoleUser, created.Role)
	assert.NotContains(t, w.Body.String(), "password")

	// Same email again is a conflict.
	w = env.do(t, http.MethodPost, "/api/auth/register", "", register)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/login", "", domain.LoginRequest{Email: "alice@example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	var login domain.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, created.ID, login.User.ID)

	claims, err := env.tokens.Validate(login.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	w = env.do(t, http.MethodPost, "/api/auth/login", "", domain.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decodeError(t, w))
}

func TestCreateReview(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "bob", domain.RoleUser)
	_, movieID := env.seedCatalog(t, "Inception")

	w := env.do(t, http.MethodPost, "/api/movie/"+movieID+"/review/create", token,
		domain.CreateReviewRequest{Rating: 5, Description: "Great"})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	var review domain.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &review))
	assert.Equal(t, "bob", review.ReviewUser)
	assert.Equal(t, 5, review.Rating)
	assert.True(t, review.Active)

	// The movie's aggregate reflects the first rating directly.
	movie, err := env.mem.Movies().GetByID(context.Background(), movieID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, movie.AvgRating)
	assert.Equal(t, 1, movie.NumberRating)
}

func TestCreateReviewDuplicate(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "bob", domain.RoleUser)
	_, movieID := env.seedCatalog(t, "Inception")

	w := env.do(t, http.MethodPost, "/api/movie/"+movieID+"/review/create", token,
		domain.CreateReviewRequest{Rating: 5})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/movie/"+movieID+"/review/create", token,
		domain.CreateReviewRequest{Rating: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You have already reviewed this movie", decodeError(t, w))

	// A rejected duplicate leaves the aggregate untouched.
	movie, err := env.mem.Movies().GetByID(context.Background(), movieID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, movie.AvgRating)
	assert.Equal(t, 1, movie.NumberRating)

	reviews, err := env.mem.Reviews().ListByMovieID(context.Background(), movieID, "")
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestCreateReviewRatingOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "bob", domain.RoleUser)

	// The range check fires before the movie lookup, so even a nonexistent
	// movie yields 400 here, not 404.
	for _, rating := range []int{0, 6, -1} {
		w := env.do(t, http.MethodPost, "/api/movie/"+uuid.NewString()+"/review/create", token,
			domain.CreateReviewRequest{Rating: rating})
		assert.Equal(t, http.StatusBadRequest, w.Code, "rating %d", rating)
	}
}

func TestCreateReviewMovieNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "bob", domain.RoleUser)

	w := env.do(t, http.MethodPost, "/api/movie/"+uuid.NewString()+"/review/create", token,
		domain.CreateReviewRequest{Rating: 3})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Movie not found", decodeError(t, w))
}

func TestCreateReviewUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	_, movieID := env.seedCatalog(t, "Inception")

	w := env.do(t, http.MethodPost, "/api/movie/"+movieID+"/review/create", "",
		domain.CreateReviewRequest{Rating: 3})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/movie/"+movieID+"/review/create", "not-a-token",
		domain.CreateReviewRequest{Rating: 3})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid or expired token", decodeError(t, w))
}

func TestRatingAggregationSequence(t *testing.T) {
	env := newTestEnv(t)
	_, movieID := env.seedCatalog(t, "Inception")

	// Three reviewers rating 5, 3, 4 move the running average 5.0 -> 4.0 -> 4.0.
	wantAvg := []float64{5.0, 4.0, 4.0}
	for i, rating := range []int{5, 3, 4} {
		_, token := env.seedUser(t, "reviewer"+string(rune('a'+i)), domain.RoleUser)
		w := env.do(t, http.MethodPost, "/api/movie/"+movieID+"/review/create", token,
			domain.CreateReviewRequest{Rating: rating})
		require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

		movie, err := env.mem.Movies().GetByID(context.Background(), movieID)
		require.NoError(t, err)
		assert.InDelta(t, wantAvg[i], movie.AvgRating, 1e-9)
		assert.Equal(t, i+1, movie.NumberRating)
	}
}

func TestReviewMutationPermissions(t *testing.T) {
	env := newTestEnv(t)
	_, ownerToken := env.seedUser(t, "owner", domain.RoleUser)
	_, otherToken := env.seedUser(t, "stranger", domain.RoleUser)
	_, adminToken := env.seedUser(t, "boss", domain.RoleAdmin)
	_, movieID := env.seedCatalog(t, "Inception")

	w := env.do(t, http.MethodPost, "/api/movie/"+movieID+"/review/create", ownerToken,
		domain.CreateReviewRequest{Rating: 4, Description: "Solid"})
	require.Equal(t, http.StatusCreated, w.Code)
	var review domain.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &review))

	update := domain.UpdateReviewRequest{Rating: 2, Description: "On reflection"}

	w = env.do(t, http.MethodPut, "/api/review/"+review.ID, otherToken, update)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You do not have permission to modify this review", decodeError(t, w))

	w = env.do(t, http.MethodPut, "/api/review/"+review.ID, ownerToken, update)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	var updated domain.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, 2, updated.Rating)

	w = env.do(t, http.MethodDelete, "/api/review/"+review.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Admins may mutate anyone's review.
	w = env.do(t, http.MethodDelete, "/api/review/"+review.ID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/review/"+review.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewMutationLeavesAggregateAlone(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "bob", domain.RoleUser)
	_, movieID := env.seedCatalog(t, "Inception")

	w := env.do(t, http.MethodPost, "/api/movie/"+movieID+"/review/create", token,
		domain.CreateReviewRequest{Rating: 5})
	require.Equal(t, http.StatusCreated, w.Code)
	var review domain.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &review))

	w = env.do(t, http.MethodPut, "/api/review/"+review.ID, token, domain.UpdateReviewRequest{Rating: 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, "/api/review/"+review.ID, token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// Neither the edit nor the delete recomputed the movie's statistics.
	movie, err := env.mem.Movies().GetByID(context.Background(), movieID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, movie.AvgRating)
	assert.Equal(t, 1, movie.NumberRating)
}

func TestCatalogWritesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, userToken := env.seedUser(t, "bob", domain.RoleUser)
	_, adminToken := env.seedUser(t, "boss", domain.RoleAdmin)

	platformReq := domain.CreatePlatformRequest{Name: "Netplex", About: "Streaming", Website: "https://netplex.example.com"}

	w := env.do(t, http.MethodPost, "/api/stream/", userToken, platformReq)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Administrator privilege required", decodeError(t, w))

	w = env.do(t, http.MethodPost, "/api/stream/", adminToken, platformReq)
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	var platform domain.Platform
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &platform))

	movieReq := domain.CreateMovieRequest{Title: "Inception", Storyline: "Dreams", PlatformID: platform.ID}

	w = env.do(t, http.MethodPost, "/api/movie/", userToken, movieReq)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/movie/", adminToken, movieReq)
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	var movie domain.Movie
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &movie))
	assert.True(t, movie.Active, "movies default to active")
	assert.Equal(t, platform.ID, movie.PlatformID)
}

func TestCreateMovieUnknownPlatform(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.seedUser(t, "boss", domain.RoleAdmin)

	w := env.do(t, http.MethodPost, "/api/movie/", adminToken,
		domain.CreateMovieRequest{Title: "Orphan", Storyline: "No home", PlatformID: uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Platform not found", decodeError(t, w))
}

func TestUpdateMoviePreservesRatingStats(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.seedUser(t, "boss", domain.RoleAdmin)
	_, reviewerToken := env.seedUser(t, "bob", domain.RoleUser)
	platformID, movieID := env.seedCatalog(t, "Inception")

	w := env.do(t, http.MethodPost, "/api/movie/"+movieID+"/review/create", reviewerToken,
		domain.CreateReviewRequest{Rating: 4})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPut, "/api/movie/"+movieID, adminToken,
		domain.UpdateMovieRequest{Title: "Inception (Director's Cut)", Storyline: "Longer dreams", PlatformID: platformID})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	movie, err := env.mem.Movies().GetByID(context.Background(), movieID)
	require.NoError(t, err)
	assert.Equal(t, "Inception (Director's Cut)", movie.Title)
	assert.Equal(t, 4.0, movie.AvgRating)
	assert.Equal(t, 1, movie.NumberRating)
}

func TestPlatformCascadeDelete(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.seedUser(t, "boss", domain.RoleAdmin)
	_, reviewerToken := env.seedUser(t, "bob", domain.RoleUser)
	platformID, movieID := env.seedCatalog(t, "Inception")

	w := env.do(t, http.MethodPost, "/api/movie/"+movieID+"/review/create", reviewerToken,
		domain.CreateReviewRequest{Rating: 4})
	require.Equal(t, http.StatusCreated, w.Code)
	var review domain.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &review))

	w = env.do(t, http.MethodDelete, "/api/stream/"+platformID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// The platform's movies and their reviews went with it.
	w = env.do(t, http.MethodGet, "/api/stream/"+platformID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/api/movie/"+movieID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/api/review/"+review.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPlatformNestsMoviesAndReviews(t *testing.T) {
	env := newTestEnv(t)
	_, reviewerToken := env.seedUser(t, "bob", domain.RoleUser)
	platformID, movieID := env.seedCatalog(t, "Inception")

	w := env.do(t, http.MethodPost, "/api/movie/"+movieID+"/review/create", reviewerToken,
		domain.CreateReviewRequest{Rating: 4, Description: "Good"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/stream/"+platformID, "", nil)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	var platform domain.Platform
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &platform))
	require.Len(t, platform.Movies, 1)
	require.Len(t, platform.Movies[0].Reviews, 1)
	assert.Equal(t, "bob", platform.Movies[0].Reviews[0].ReviewUser)
}

func TestListMoviesPagination(t *testing.T) {
	env := newTestEnv(t)
	platform := &domain.Platform{ID: uuid.NewString(), Name: "Netplex"}
	require.NoError(t, env.mem.Platforms().Create(context.Background(), platform))
	for i := 0; i < 15; i++ {
		movie := &domain.Movie{
			ID:         uuid.NewString(),
			Title:      "Movie " + string(rune('A'+i)),
			Storyline:  "Storyline",
			PlatformID: platform.ID,
			Active:     true,
		}
		require.NoError(t, env.mem.Movies().Create(context.Background(), movie))
	}

	w := env.do(t, http.MethodGet, "/api/movie/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page MovieListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Items, 10)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "Movie A", page.Items[0].Title)

	w = env.do(t, http.MethodGet, "/api/movie/?cursor="+*page.NextCursor, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var second MovieListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Len(t, second.Items, 5)
	assert.Nil(t, second.NextCursor)
	assert.Equal(t, "Movie K", second.Items[0].Title)

	w = env.do(t, http.MethodGet, "/api/movie/?cursor=%21%21%21", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid cursor", decodeError(t, w))
}

func TestListMoviesFilters(t *testing.T) {
	env := newTestEnv(t)
	platformID, _ := env.seedCatalog(t, "Inception")
	inactive := &domain.Movie{ID: uuid.NewString(), Title: "Shelved", Storyline: "Gone", PlatformID: platformID, Active: false}
	require.NoError(t, env.mem.Movies().Create(context.Background(), inactive))

	w := env.do(t, http.MethodGet, "/api/movie/?active=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page MovieListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Inception", page.Items[0].Title)

	w = env.do(t, http.MethodGet, "/api/movie/?search=shelv", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = MovieListResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Shelved", page.Items[0].Title)

	w = env.do(t, http.MethodGet, "/api/movie/?active=banana", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListReviews(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.seedUser(t, "alice", domain.RoleUser)
	_, bobToken := env.seedUser(t, "bob", domain.RoleUser)
	_, movieID := env.seedCatalog(t, "Inception")

	for _, token := range []string{aliceToken, bobToken} {
		w := env.do(t, http.MethodPost, "/api/movie/"+movieID+"/review/create", token,
			domain.CreateReviewRequest{Rating: 3})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/movie/"+movieID+"/reviews/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reviews []*domain.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reviews))
	assert.Len(t, reviews, 2)

	w = env.do(t, http.MethodGet, "/api/movie/"+movieID+"/reviews/?search=ali", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	reviews = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reviews))
	require.Len(t, reviews, 1)
	assert.Equal(t, "alice", reviews[0].ReviewUser)

	w = env.do(t, http.MethodGet, "/api/review?username=bob", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	reviews = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reviews))
	assert.Len(t, reviews, 1)

	// An unknown username is an empty list, not an error.
	w = env.do(t, http.MethodGet, "/api/review?username=nobody", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	reviews = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reviews))
	assert.Empty(t, reviews)

	w = env.do(t, http.MethodGet, "/api/movie/"+uuid.NewString()+"/reviews/", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
