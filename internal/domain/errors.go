package domain

import "errors"

// Sentinel errors for the voting core. Handlers map these onto the HTTP error
// taxonomy; services wrap them with context but never swallow them.
var (
	ErrTestNotFound     = errors.New("test not found")
	ErrOptionNotFound   = errors.New("option not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrSessionNotFound  = errors.New("vote session not found")
	ErrTestInactive     = errors.New("test is not accepting votes")
	ErrInvalidChoice    = errors.New("chosen option is not in the current pair")
	ErrSessionComplete  = errors.New("vote session is already complete")
	ErrSessionConflict  = errors.New("vote session already exists")
	ErrUnauthorized     = errors.New("caller does not own this vote session")
	ErrValidation       = errors.New("invalid input")
)
