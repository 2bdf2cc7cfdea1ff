package users

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")

	ErrTokenNotFound   = errors.New("verification token not found")
	ErrTokenExpired    = errors.New("verification token expired")
	ErrAlreadyVerified = errors.New("email already verified")

	// ErrInvalidCredentials covers both unknown email and wrong password so
	// callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountBlocked     = errors.New("account blocked")
	ErrEmailNotVerified   = errors.New("email not verified")

	ErrSelfDelete  = errors.New("admins cannot delete their own account")
	ErrSelfBlock   = errors.New("admins cannot block their own account")
	ErrSelfDemote  = errors.New("admins cannot demote their own account")
	ErrInvalidRole = errors.New("invalid role")
)
