package domain

import "errors"

// User is the caller named by a verified bearer token.
type User struct {
	ID   string
	Role Role
}

// Role represents a caller's access level.
type Role string

const (
	// RoleAdmin may also reopen completed reconciliations.
	RoleAdmin Role = "admin"

	// RoleAccountant records and changes books.
	RoleAccountant Role = "accountant"

	// RoleViewer can only read.
	RoleViewer Role = "viewer"
)

var roleRank = map[Role]int{
	RoleViewer:     1,
	RoleAccountant: 2,
	RoleAdmin:      3,
}

// IsValid checks if the role is a known role.
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// Allows reports whether r carries at least the rights of min.
func (r Role) Allows(min Role) bool {
	return r.IsValid() && roleRank[r] >= roleRank[min]
}

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)
