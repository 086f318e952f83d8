package domain

// Principal is the authenticated caller as seen by services.
type Principal struct {
	Username string
	Role     Role
}
