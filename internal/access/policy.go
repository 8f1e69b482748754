// Package access holds the capability checks evaluated before each mutation.
// Reads are open to everyone; the policies below gate writes only.
package access

import (
	"streamreview/internal/domain"
)

// Caller identifies the authenticated user making a request. A zero Caller
// (empty ID) means the request carried no valid credentials.
type Caller struct {
	ID       string
	Username string
	Role     string
}

// IsAuthenticated reports whether the caller carried valid credentials.
func (c Caller) IsAuthenticated() bool {
	return c.ID != ""
}

// IsAdmin reports whether the caller holds administrator privilege.
func (c Caller) IsAdmin() bool {
	return c.Role == domain.RoleAdmin
}

// CanManageCatalog applies the administrator-only-write policy used for
// platforms and movies.
func CanManageCatalog(c Caller) bool {
	return c.IsAuthenticated() && c.IsAdmin()
}

// CanSubmitReview requires only an authenticated caller; uniqueness per
// (user, movie) is enforced by the submission transaction, not here.
func CanSubmitReview(c Caller) bool {
	return c.IsAuthenticated()
}

// CanMutateReview applies the owner-or-administrator-write policy for updating
// or deleting an existing review.
func CanMutateReview(c Caller, review *domain.Review) bool {
	if !c.IsAuthenticated() {
		return false
	}
	return c.ID == review.UserID || c.IsAdmin()
}
