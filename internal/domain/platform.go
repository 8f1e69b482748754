package domain

// Platform is a streaming service hosting movies. Deleting a platform removes
// all of its movies and, transitively, their reviews.
type Platform struct {
	ID      string `json:"id" db:"id"` // UUID
	Name    string `json:"name" db:"name"`
	About   string `json:"about" db:"about"`
	Website string `json:"website" db:"website"`

	// Movies is a read-only nested representation, populated on reads only.
	Movies []*Movie `json:"movies" db:"-"`
}

// CreatePlatformRequest is the body of POST /api/stream/.
type CreatePlatformRequest struct {
	Name    string `json:"name" validate:"required,max=30"`
	About   string `json:"about" validate:"required,max=150"`
	Website string `json:"website" validate:"required,url,max=100"`
}

// UpdatePlatformRequest is the body of PUT /api/stream/{id}.
type UpdatePlatformRequest struct {
	Name    string `json:"name" validate:"required,max=30"`
	About   string `json:"about" validate:"required,max=150"`
	Website string `json:"website" validate:"required,url,max=100"`
}
