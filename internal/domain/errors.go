package domain

import "errors"

// Sentinel errors for the application.
var (
	ErrDuplicateUsername    = errors.New("username already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserNotFound         = errors.New("user not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrAccessDenied         = errors.New("access denied")
	ErrUnauthenticated      = errors.New("not authenticated")
	ErrInvalidInput         = errors.New("invalid input")

	// Store-level errors.
	ErrConflict          = errors.New("resource already exists")
	ErrMalformedDocument = errors.New("malformed document")
)
