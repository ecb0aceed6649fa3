package domain

// Principal is the authenticated caller. OwnerID scopes every owned resource.
type Principal struct {
	OwnerID string
	Email   string
	Role    string
}

func (p Principal) IsAdmin() bool {
	return p.Role == "admin"
}
