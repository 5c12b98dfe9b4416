package models

// Role identifies the kind of user performing an operation
type Role string

const (
	RoleAdmin    Role = "admin"
	RolePharmacy Role = "pharmacy"
	RoleClient   Role = "client"
	RoleCourier  Role = "courier"
)

// ValidRole reports whether r is a known role
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RolePharmacy, RoleClient, RoleCourier:
		return true
	}
	return false
}

// Actor is the authenticated identity performing an operation. It is threaded
// explicitly through every core call; there is no ambient auth state.
type Actor struct {
	UserID string
	Role   Role

	// PharmacyID is set only for pharmacy actors and scopes which orders
	// they may see and mutate.
	PharmacyID string
}

// IsAdmin reports whether the actor has the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
