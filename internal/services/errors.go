package services

import "errors"

// Sentinel errors returned by the core services. Handlers map these onto
// HTTP status codes; storage errors are wrapped and propagate unmodified.
var (
	ErrPromptNotFound      = errors.New("prompt not found")
	ErrInteractionNotFound = errors.New("interaction not found")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
	ErrInvalidWindow       = errors.New("metrics window must be positive")
)
