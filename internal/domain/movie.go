package domain

// Movie is a title hosted on exactly one platform. AvgRating and NumberRating
// are maintained by the review submission protocol and are never recomputed
// when a review is later edited or deleted.
type Movie struct {
	ID           string  `json:"id" db:"id"` // UUID
	Title        string  `json:"title" db:"title"`
	Storyline    string  `json:"storyline" db:"storyline"`
	PlatformID   string  `json:"platform" db:"platform_id"`
	Active       bool    `json:"active" db:"active"`
	AvgRating    float64 `json:"avg_rating" db:"avg_rating"`
	NumberRating int     `json:"number_rating" db:"number_rating"`

	// Reviews is a read-only nested representation, populated on reads only.
	Reviews []*Review `json:"reviews" db:"-"`
}

// CreateMovieRequest is the body of POST /api/movie/.
type CreateMovieRequest struct {
	Title      string `json:"title" validate:"required,max=50"`
	Storyline  string `json:"storyline" validate:"required,max=200"`
	PlatformID string `json:"platform" validate:"required,uuid"`
	Active     *bool  `json:"active,omitempty"`
}

// UpdateMovieRequest is the body of PUT /api/movie/{id}. Rating statistics are
// not writable through the movie API.
type UpdateMovieRequest struct {
	Title      string `json:"title" validate:"required,max=50"`
	Storyline  string `json:"storyline" validate:"required,max=200"`
	PlatformID string `json:"platform" validate:"required,uuid"`
	Active     *bool  `json:"active,omitempty"`
}
