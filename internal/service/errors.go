package service

import "errors"

// Failure taxonomy of the account lifecycle. The HTTP layer maps each of
// these to a status code; anything else is a server error.
var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrSuspended          = errors.New("account suspended")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("user not found")
	ErrConflict           = errors.New("email already registered")
	ErrInvalidToken       = errors.New("token invalid or expired")
	ErrBadPassword        = errors.New("password incorrect")
	ErrInvalidRole        = errors.New("invalid role")
	ErrNoFields           = errors.New("no fields to update")
	ErrNoChanges          = errors.New("user not found or no changes made")
	ErrMailFailed         = errors.New("mail delivery failed")
)
