package domain

import "time"

// Role is the closed set of account roles.
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleAgent  Role = "AGENT"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAgent:
		return true
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(raw string) (Role, bool) {
	r := Role(raw)
	return r, r.Valid()
}

const (
	UsernameMinLength = 6
	UsernameMaxLength = 20
)

// Account is a registered user of the portal.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
