package errors

import "errors"

var (
	ErrBreakGlassNotFound    = errors.New("break-glass request not found")
	ErrInvalidBreakGlassData = errors.New("invalid break-glass request data")
	ErrInvalidTransition     = errors.New("invalid break-glass state transition")

	ErrConsentNotFound    = errors.New("consent grant not found")
	ErrInvalidConsentData = errors.New("invalid consent data")
)
