package service

import (
	"context"

	"accountd/internal/domain"
	"accountd/internal/dto"
)

// TwoFactorService drives the enrollment state machine
// (unenrolled → enrolling → enabled) and the login-time challenge.
type TwoFactorService interface {
	// Setup requires a fresh password confirmation; a live session is not
	// enough to enroll a factor.
	Setup(ctx context.Context, userID domain.UserID, method domain.TwoFactorMethod, password string) (*dto.TwoFactorSetupResponse, error)
	// Confirm verifies the supplied code and flips the config to enabled.
	Confirm(ctx context.Context, userID domain.UserID, code string) error
	// Challenge dispatches whatever the user's method needs at login time
	// (a mailed code for email, nothing for totp).
	Challenge(ctx context.Context, user *domain.User, cfg *domain.TwoFactorConfig) error
	// VerifyLogin checks a step-up code against an active config.
	VerifyLogin(ctx context.Context, userID domain.UserID, code string) error
	// Teardown requires a fresh password confirmation and removes the config
	// together with any outstanding codes.
	Teardown(ctx context.Context, userID domain.UserID, password string) error
}
