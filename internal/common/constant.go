// Package common contains shared constants and sentinel errors used across
// servicios components.
package common

// RequestIDHeaderName carries the per-request correlation id on HTTP
// responses.
const RequestIDHeaderName = "X-Request-Id"

// AuthorizationHeaderName is the HTTP header that carries the bearer token.
const AuthorizationHeaderName = "Authorization"
