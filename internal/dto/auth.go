package dto

import "time"

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type VerifyLoginRequest struct {
	Code string `json:"code"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// SessionResult is what a successful credential exchange produces: a signed
// cookie value plus what the client may learn at this stage. User is nil
// while the session is still 2FA-pending.
type SessionResult struct {
	Token       string
	ExpiresAt   time.Time
	Requires2FA bool
	User        *UserInfo
}
