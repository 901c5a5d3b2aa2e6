package actor

import "github.com/google/uuid"

const (
	RoleAdmin  = "admin"
	RoleWorker = "worker"
)

// Actor is the authenticated caller of an operation. It is resolved by the
// identity layer; the domain depends only on the id and the role set, never
// on the token format.
type Actor struct {
	ID    uuid.UUID
	Roles []string
}

// HasRole reports whether the actor carries the given role.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}
