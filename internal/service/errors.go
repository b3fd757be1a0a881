package service

import "errors"

var (
	ErrInvalidDomain      = errors.New("email is outside the organization domain")
	ErrUnknownUser        = errors.New("user not found")
	ErrInvalidCode        = errors.New("invalid one-time code")
	ErrProfileUnavailable = errors.New("user profile unavailable")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrComplaintNotFound  = errors.New("complaint not found")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUserNotFound       = errors.New("managed user not found")
)
