package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"streamreview/internal/domain"
	"streamreview/internal/ratings"
)

// MemoryStore backs in-memory implementations of UserStore, PlatformStore,
// MovieStore and ReviewStore, used for tests and local development without a
// database. One mutex guards all entity maps, so cross-entity operations
// (cascade deletes, review submission) run in a single serialized scope just
// like the Postgres transactions do.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*domain.User
	platforms map[string]*domain.Platform
	movies    map[string]*domain.Movie
	reviews   map[string]*domain.Review
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*domain.User),
		platforms: make(map[string]*domain.Platform),
		movies:    make(map[string]*domain.Movie),
		reviews:   make(map[string]*domain.Review),
	}
}

// Users returns the UserStore view of the MemoryStore.
func (m *MemoryStore) Users() UserStore { return memoryUserStore{m} }

// Platforms returns the PlatformStore view of the MemoryStore.
func (m *MemoryStore) Platforms() PlatformStore { return memoryPlatformStore{m} }

// Movies returns the MovieStore view of the MemoryStore.
func (m *MemoryStore) Movies() MovieStore { return memoryMovieStore{m} }

// Reviews returns the ReviewStore view of the MemoryStore.
func (m *MemoryStore) Reviews() ReviewStore { return memoryReviewStore{m} }

// --- UserStore view ---

type memoryUserStore struct{ *MemoryStore }

func (s memoryUserStore) Create(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return ErrUserAlreadyExists
		}
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	userCopy := *user
	s.users[user.ID] = &userCopy
	return nil
}

func (s memoryUserStore) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		userCopy := *user
		return &userCopy, nil
	}
	return nil, ErrUserNotFound
}

func (s memoryUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			userCopy := *user
			return &userCopy, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s memoryUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == username {
			userCopy := *user
			return &userCopy, nil
		}
	}
	return nil, ErrUserNotFound
}

// --- PlatformStore view ---

type memoryPlatformStore struct{ *MemoryStore }

func (s memoryPlatformStore) Create(ctx context.Context, platform *domain.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	platformCopy := *platform
	platformCopy.Movies = nil
	s.platforms[platform.ID] = &platformCopy
	return nil
}

func (s memoryPlatformStore) GetByID(ctx context.Context, platformID string) (*domain.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if platform, ok := s.platforms[platformID]; ok {
		platformCopy := *platform
		return &platformCopy, nil
	}
	return nil, ErrPlatformNotFound
}

func (s memoryPlatformStore) List(ctx context.Context) ([]*domain.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	platforms := make([]*domain.Platform, 0, len(s.platforms))
	for _, platform := range s.platforms {
		platformCopy := *platform
		platforms = append(platforms, &platformCopy)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i].Name < platforms[j].Name })
	return platforms, nil
}

func (s memoryPlatformStore) Update(ctx context.Context, platform *domain.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.platforms[platform.ID]; !ok {
		return ErrPlatformNotFound
	}
	platformCopy := *platform
	platformCopy.Movies = nil
	s.platforms[platform.ID] = &platformCopy
	return nil
}

func (s memoryPlatformStore) Delete(ctx context.Context, platformID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.platforms[platformID]; !ok {
		return ErrPlatformNotFound
	}
	// Explicit cascade: movies on the platform and their reviews go with it.
	for movieID, movie := range s.movies {
		if movie.PlatformID != platformID {
			continue
		}
		for reviewID, review := range s.reviews {
			if review.MovieID == movieID {
				delete(s.reviews, reviewID)
			}
		}
		delete(s.movies, movieID)
	}
	delete(s.platforms, platformID)
	return nil
}

// --- MovieStore view ---

type memoryMovieStore struct{ *MemoryStore }

func (s memoryMovieStore) Create(ctx context.Context, movie *domain.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.platforms[movie.PlatformID]; !ok {
		return ErrPlatformNotFound
	}
	movieCopy := *movie
	movieCopy.Reviews = nil
	s.movies[movie.ID] = &movieCopy
	return nil
}

func (s memoryMovieStore) GetByID(ctx context.Context, movieID string) (*domain.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if movie, ok := s.movies[movieID]; ok {
		movieCopy := *movie
		return &movieCopy, nil
	}
	return nil, ErrMovieNotFound
}

func (s memoryMovieStore) List(ctx context.Context, params MovieListParams) ([]*domain.Movie, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []*domain.Movie{}
	for _, movie := range s.movies {
		if params.PlatformID != "" && movie.PlatformID != params.PlatformID {
			continue
		}
		if params.Active != nil && movie.Active != *params.Active {
			continue
		}
		if params.Search != "" {
			needle := strings.ToLower(params.Search)
			if !strings.Contains(strings.ToLower(movie.Title), needle) &&
				!strings.Contains(strings.ToLower(movie.Storyline), needle) {
				continue
			}
		}
		movieCopy := *movie
		matched = append(matched, &movieCopy)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Title < matched[j].Title })

	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}
	if params.Offset >= len(matched) {
		return []*domain.Movie{}, false, nil
	}
	matched = matched[params.Offset:]
	hasMore := len(matched) > limit
	if hasMore {
		matched = matched[:limit]
	}
	return matched, hasMore, nil
}

func (s memoryMovieStore) ListByPlatformID(ctx context.Context, platformID string) ([]*domain.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	movies := []*domain.Movie{}
	for _, movie := range s.movies {
		if movie.PlatformID == platformID {
			movieCopy := *movie
			movies = append(movies, &movieCopy)
		}
	}
	sort.Slice(movies, func(i, j int) bool { return movies[i].Title < movies[j].Title })
	return movies, nil
}

func (s memoryMovieStore) Update(ctx context.Context, movie *domain.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.movies[movie.ID]
	if !ok {
		return ErrMovieNotFound
	}
	if _, ok := s.platforms[movie.PlatformID]; !ok {
		return ErrPlatformNotFound
	}
	movieCopy := *movie
	// Rating statistics are owned by the submission protocol.
	movieCopy.AvgRating = existing.AvgRating
	movieCopy.NumberRating = existing.NumberRating
	movieCopy.Reviews = nil
	s.movies[movie.ID] = &movieCopy
	return nil
}

func (s memoryMovieStore) Delete(ctx context.Context, movieID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[movieID]; !ok {
		return ErrMovieNotFound
	}
	for reviewID, review := range s.reviews {
		if review.MovieID == movieID {
			delete(s.reviews, reviewID)
		}
	}
	delete(s.movies, movieID)
	return nil
}

// --- ReviewStore view ---

type memoryReviewStore struct{ *MemoryStore }

func (s memoryReviewStore) SubmitReview(ctx context.Context, review *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	movie, ok := s.movies[review.MovieID]
	if !ok {
		return ErrMovieNotFound
	}
	for _, existing := range s.reviews {
		if existing.MovieID == review.MovieID && existing.UserID == review.UserID {
			return ErrDuplicateReview
		}
	}

	movie.AvgRating, movie.NumberRating = ratings.Apply(movie.AvgRating, movie.NumberRating, review.Rating)

	review.Active = true
	review.UpdatedAt = time.Now().UTC()
	if user, ok := s.users[review.UserID]; ok {
		review.ReviewUser = user.Username
	}
	reviewCopy := *review
	s.reviews[review.ID] = &reviewCopy
	return nil
}

func (s memoryReviewStore) GetByID(ctx context.Context, reviewID string) (*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if review, ok := s.reviews[reviewID]; ok {
		reviewCopy := *review
		return &reviewCopy, nil
	}
	return nil, ErrReviewNotFound
}

func (s memoryReviewStore) Update(ctx context.Context, review *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.reviews[review.ID]
	if !ok {
		return ErrReviewNotFound
	}
	existing.Rating = review.Rating
	existing.Description = review.Description
	existing.Active = review.Active
	existing.UpdatedAt = time.Now().UTC()
	review.UpdatedAt = existing.UpdatedAt
	return nil
}

func (s memoryReviewStore) Delete(ctx context.Context, reviewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[reviewID]; !ok {
		return ErrReviewNotFound
	}
	delete(s.reviews, reviewID)
	return nil
}

func (s memoryReviewStore) ListByMovieID(ctx context.Context, movieID, search string) ([]*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reviews := []*domain.Review{}
	for _, review := range s.reviews {
		if review.MovieID != movieID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(review.ReviewUser), strings.ToLower(search)) {
			continue
		}
		reviewCopy := *review
		reviews = append(reviews, &reviewCopy)
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].UpdatedAt.After(reviews[j].UpdatedAt) })
	return reviews, nil
}

func (s memoryReviewStore) ListByUsername(ctx context.Context, username string) ([]*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reviews := []*domain.Review{}
	for _, review := range s.reviews {
		if review.ReviewUser == username {
			reviewCopy := *review
			reviews = append(reviews, &reviewCopy)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].UpdatedAt.After(reviews[j].UpdatedAt) })
	return reviews, nil
}
