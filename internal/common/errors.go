// Package common defines shared constants and sentinel errors used across
// the servicios server layers. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrInvalidRequest = errors.New("invalid request")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// AlertError is a client error that carries the entity it concerns and a
// stable error key the UI translates ("error." + ErrorKey).
type AlertError struct {
	EntityName string
	ErrorKey   string
	Message    string
}

// NewAlertError builds an AlertError for entityName.
func NewAlertError(message, entityName, errorKey string) *AlertError {
	return &AlertError{EntityName: entityName, ErrorKey: errorKey, Message: message}
}

func (e *AlertError) Error() string {
	return fmt.Sprintf("%s (%s.%s)", e.Message, e.EntityName, e.ErrorKey)
}

// Is reports AlertError as ErrInvalidRequest.
func (e *AlertError) Is(target error) bool {
	return target == ErrInvalidRequest
}
