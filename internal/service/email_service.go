package service

import "context"

type EmailService interface {
	SendPasswordReset(ctx context.Context, to, token string) error
	SendTwoFactorCode(ctx context.Context, to, code string) error
	// TestConnection is run once at startup; a failure is logged, not fatal.
	TestConnection(ctx context.Context) error
}
