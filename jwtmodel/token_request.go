package jwtmodel

// TokenCreateRequest is the body posted to CreatePath.
type TokenCreateRequest struct {
	// Username identifies the account.
	// Example: "alice"
	Username string `json:"username"`

	// Password is sent as entered; it is never stored by the client.
	Password string `json:"password"`
}

// RefreshRequest is the body posted to RefreshPath.
type RefreshRequest struct {
	// Refresh is the long-lived token returned by CreatePath.
	Refresh string `json:"refresh"`
}
