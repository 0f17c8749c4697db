package http

import (
	"context"
	"errors"
	"net/http"

	"accountd/internal/domain"
	"accountd/internal/service"
)

const sessionCookieName = "authToken"

type sessionCtxKey struct{}

// SessionGate turns the session cookie into a verified Session on the request
// context. The partial/full distinction lives in the token itself; the gate
// only decides which kind a route accepts.
type SessionGate struct {
	Tokens service.TokenService
}

func (g *SessionGate) authenticate(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":   "Authentication required",
			"message": "No token provided",
		})
		return nil, false
	}
	s, err := g.Tokens.Verify(cookie.Value)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":   "Token expired",
				"message": "Please login again",
			})
		} else {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":   "Invalid token",
				"message": "Token is malformed or invalid",
			})
		}
		return nil, false
	}
	return s, true
}

// RequireSession admits full sessions only; a 2FA-pending token is rejected
// with a hint so clients know to finish the step-up.
func (g *SessionGate) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := g.authenticate(w, r)
		if !ok {
			return
		}
		if s.Requires2FA {
			writeJSON(w, http.StatusForbidden, errorBody{
				Error:       "2FA verification required",
				Requires2FA: true,
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), s)))
	})
}

// RequirePartialSession admits only 2FA-pending sessions; the verify endpoint
// is useless to a full session.
func (g *SessionGate) RequirePartialSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := g.authenticate(w, r)
		if !ok {
			return
		}
		if !s.Requires2FA {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "2FA not pending"})
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), s)))
	})
}

// RequireRole composes after RequireSession.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := SessionFromContext(r.Context())
			if s == nil || s.Role != role {
				writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withSession(ctx context.Context, s *service.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

func SessionFromContext(ctx context.Context) *service.Session {
	if s, ok := ctx.Value(sessionCtxKey{}).(*service.Session); ok {
		return s
	}
	return nil
}
