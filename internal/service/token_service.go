package service

import (
	"time"

	"accountd/internal/domain"
)

// Session is the payload a session token carries. Requires2FA distinguishes a
// partial session (password proven, second factor pending) from a full one;
// it is the only thing separating the two and is enforced server-side.
type Session struct {
	UserID      domain.UserID
	Username    string
	Role        string
	Requires2FA bool
}

type TokenService interface {
	// Issue signs a fresh token for the session; tokens are immutable values,
	// never upgraded in place.
	Issue(s Session) (token string, expiresAt time.Time, err error)
	// Verify returns domain.ErrTokenMalformed or domain.ErrTokenExpired on
	// failure; callers need the distinction for remediation messages.
	Verify(token string) (*Session, error)
}
