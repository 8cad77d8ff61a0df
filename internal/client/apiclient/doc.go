// Package apiclient is the resilient HTTP client every pantry page talks
// through.
//
// # Overview
//
// A Client owns one Session (token, user, fallback bookkeeping) and offers:
//  1. Authenticate / Restore / Logout for the session lifecycle. The token is
//     kept in memory and in a tokenstore.Store so it survives a restart.
//  2. Request, which injects the bearer token, bounds the call with a
//     timeout, classifies the answer and, for endpoints that have bundled
//     sample data, substitutes it when the backend is unreachable.
//
// # Error Handling
//
// Failures come back as *Error carrying a Kind. Callers match with
// errors.Is against ErrAuthRequired, ErrNotFound, ErrNetwork, ErrServer and
// ErrValidation, or use KindOf. Every classified failure produces exactly one
// notification; fallback substitution produces at most one per session.
//
// # Concurrency
//
// Client and Session are safe for concurrent use. All operations honour
// context cancellation; a cancelled caller context is returned as is and is
// not announced.
package apiclient
