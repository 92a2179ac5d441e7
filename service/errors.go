package service

import "errors"

// Errors returned by the services. Handlers map them to HTTP status codes
// with errors.Is; the wrapped text is safe to show to clients.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("report not found")
	ErrConflict           = errors.New("report was modified by another submission")
	ErrInvalidCredentials = errors.New("invalid credentials or not authorized as Admin")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrTemplate           = errors.New("failed to read report template")
	ErrRender             = errors.New("failed to fill report template")
)
