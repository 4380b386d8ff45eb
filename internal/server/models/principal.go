package models

// Principal is the identity attached to an authenticated request.
//
// Role starts as the unverified hint carried by the token. Only after the
// live account has been checked does RoleVerified become true.
type Principal struct {
	AccountID    string
	Username     string
	Role         Role
	RoleVerified bool
}

// Is reports whether the principal holds role according to the account store.
func (p Principal) Is(role Role) bool {
	return p.RoleVerified && p.Role == role
}
