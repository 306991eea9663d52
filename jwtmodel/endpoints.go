package jwtmodel

import "strings"

// Auth endpoint paths, relative to the configured API host.
const (
	// CreatePath issues an access/refresh pair for username + password.
	// Request:  TokenCreateRequest
	// Response: TokenPair
	CreatePath = "/auth/jwt/create"

	// RefreshPath mints a new access token from a refresh token.
	// Request:  RefreshRequest
	// Response: AccessResponse
	// Failure:  any non-2xx means the refresh token is invalid or expired
	RefreshPath = "/auth/jwt/refresh"
)

// IsAuthPath reports whether path ends with one of the auth endpoints, with or
// without a trailing slash. Requests to these paths are never refreshed.
func IsAuthPath(path string) bool {
	for _, p := range []string{CreatePath, RefreshPath} {
		if strings.HasSuffix(path, p) || strings.HasSuffix(path, p+"/") {
			return true
		}
	}
	return false
}

