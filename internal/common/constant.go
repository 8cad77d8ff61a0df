// Package common holds wire-level names shared by the pantry client packages.
package common

const (
	// AuthorizationHeader carries the bearer token on outbound requests.
	AuthorizationHeader = "Authorization"
	// BearerScheme prefixes the token inside AuthorizationHeader.
	BearerScheme = "Bearer"
	// RequestIDHeader correlates a request with client-side log lines.
	RequestIDHeader = "X-Request-ID"

	// TokenStorageKey and UsernameStorageKey name the durable metadata rows
	// that let a session survive a restart.
	TokenStorageKey    = "auth_token"
	UsernameStorageKey = "username"
)
