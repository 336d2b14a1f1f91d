package identity

import "time"

// Role distinguishes the three kinds of marketplace actors.
type Role string

const (
	RoleClient  Role = "client"
	RoleStylist Role = "stylist"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleStylist, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered marketplace account.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Role         Role
	PasswordHash []byte
	TokenVersion int
	Active       bool
	CreatedAt    time.Time
	LastLogin    time.Time
}

// Credentials carries a login or registration request.
type Credentials struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     Role
}
