package domain

import "errors"

var (
	ErrValidation             = errors.New("invalid input")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUserNotFound           = errors.New("user not found")
	ErrConflict               = errors.New("already exists")
	ErrTokenMalformed         = errors.New("token malformed")
	ErrTokenExpired           = errors.New("token expired")
	ErrInvalidOrExpiredToken  = errors.New("invalid or expired token")
	ErrInvalidCode            = errors.New("invalid code")
	ErrNotPending             = errors.New("two-factor not pending")
	ErrTwoFactorConfigured    = errors.New("two-factor already configured")
	ErrTwoFactorNotConfigured = errors.New("two-factor not configured")
	ErrUnknownTwoFactorMethod = errors.New("unknown two-factor method")
	ErrUpstream               = errors.New("upstream provider failure")
)
