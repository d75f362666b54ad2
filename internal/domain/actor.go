package domain

// Role is a coarse authorization role attached to an actor.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleCargoOwner Role = "CARGO_OWNER"
	RoleDriver     Role = "DRIVER"
)

// Actor identifies the user performing an operation. It is resolved per
// request and passed explicitly into every service call; there is no
// ambient current-user lookup.
type Actor struct {
	UserID string
	Roles  []Role
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	for _, r := range a.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// Is reports whether the actor is the given user.
func (a Actor) Is(userID string) bool {
	return userID != "" && a.UserID == userID
}
