package service

import (
	"context"

	"accountd/internal/domain"
	"accountd/internal/dto"
)

type AuthService interface {
	Register(ctx context.Context, r dto.RegisterRequest) (*dto.UserInfo, error)
	// Login returns a partial session (Requires2FA=true, no user profile) when
	// the account has an active second factor, dispatching the challenge for
	// the email method as a side effect.
	Login(ctx context.Context, r dto.LoginRequest) (*dto.SessionResult, error)
	// VerifyLogin completes the step-up for a partial session and mints a
	// fresh full token.
	VerifyLogin(ctx context.Context, s *Session, code string) (*dto.SessionResult, error)
	// ForgotPassword returns the issued token (dev convenience; never exposed
	// in production) or "" when no account matched. Callers must answer
	// identically either way.
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, password string) error
	// IssueSession mints a session for an already-authenticated user, applying
	// the same 2FA gating as Login. The OAuth callback uses it after the
	// provider has vouched for the identity.
	IssueSession(ctx context.Context, user *domain.User) (*dto.SessionResult, error)
}
