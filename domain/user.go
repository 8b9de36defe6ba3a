package domain

// Principal is the authenticated operator attached to a request.
type Principal struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}
