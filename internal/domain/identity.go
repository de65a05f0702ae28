package domain

// Identity is the authenticated user attached to a connection after a
// successful token verification.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
