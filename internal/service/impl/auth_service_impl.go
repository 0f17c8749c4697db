package impl

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"accountd/internal/domain"
	"accountd/internal/dto"
	"accountd/internal/observability/metrics"
	"accountd/internal/service"
	"accountd/internal/store"

	"github.com/google/uuid"
)

const (
	DefaultResetTokenTTL = time.Hour
	resetTokenBytes      = 16
)

type AuthConfig struct {
	ResetTokenTTL time.Duration // falls back to DefaultResetTokenTTL
}

type AuthServiceImpl struct {
	store     dataStore
	passwords service.PasswordService
	tokens    service.TokenService
	twoFactor service.TwoFactorService
	email     service.EmailService
	cfg       AuthConfig
	log       *slog.Logger
	now       func() time.Time
}

func NewAuthService(
	st *store.Store,
	passwords service.PasswordService,
	tokens service.TokenService,
	twoFactor service.TwoFactorService,
	email service.EmailService,
	cfg AuthConfig,
	log *slog.Logger,
) *AuthServiceImpl {
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = DefaultResetTokenTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &AuthServiceImpl{
		store:     gormStoreAdapter{store: st},
		passwords: passwords,
		tokens:    tokens,
		twoFactor: twoFactor,
		email:     email,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

func (a *AuthServiceImpl) Register(ctx context.Context, r dto.RegisterRequest) (*dto.UserInfo, error) {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	if r.Username == "" || r.Email == "" || r.Password == "" {
		return nil, ErrEmptyCredential
	}
	if len(r.Password) < MinPasswordLength {
		return nil, ErrPasswordLength
	}

	cred, err := a.passwords.Hash(r.Password)
	if err != nil {
		metrics.AuthRegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	user := &domain.User{
		Username: r.Username,
		Email:    r.Email,
		Role:     domain.RoleUser,
	}
	err = a.store.WithTx(ctx, func(tx storeTx) error {
		if _, err := tx.Users().GetByUsername(ctx, r.Username); err == nil {
			return domain.ErrConflict
		} else if !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}
		if _, err := tx.Users().GetByEmail(ctx, r.Email); err == nil {
			return domain.ErrConflict
		} else if !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		cred.UserID = user.ID
		return tx.Credentials().UpsertPassword(ctx, cred)
	})
	if err != nil {
		// The pre-checks race with concurrent registrations; the unique index
		// is the authority.
		if errors.Is(err, store.ErrDuplicateKey) {
			err = domain.ErrConflict
		}
		if errors.Is(err, domain.ErrConflict) {
			metrics.AuthRegistrationsTotal.WithLabelValues("conflict").Inc()
		} else {
			metrics.AuthRegistrationsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	metrics.AuthRegistrationsTotal.WithLabelValues("ok").Inc()
	a.log.Info("user registered", "user_id", user.ID, "username", user.Username)
	return dto.NewUserInfo(user), nil
}

func (a *AuthServiceImpl) Login(ctx context.Context, r dto.LoginRequest) (*dto.SessionResult, error) {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.Password == "" {
		return nil, ErrEmptyLogin
	}

	var (
		user *domain.User
		cfg  *domain.TwoFactorConfig
	)
	err := a.store.WithTx(ctx, func(tx storeTx) error {
		u, err := tx.Users().GetByUsernameOrEmail(ctx, r.Username)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrInvalidCredentials
			}
			return err
		}
		cred, err := tx.Credentials().GetPasswordByUserID(ctx, u.ID)
		if err != nil {
			// OAuth-only accounts have no password credential.
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrInvalidCredentials
			}
			return err
		}
		rehash, ok := a.passwords.Verify(r.Password, cred)
		if !ok {
			return domain.ErrInvalidCredentials
		}
		if rehash {
			if fresh, err := a.passwords.Hash(r.Password); err == nil {
				fresh.UserID = u.ID
				if err := tx.Credentials().UpsertPassword(ctx, fresh); err != nil {
					a.log.Warn("password rehash failed", "user_id", u.ID, "error", err)
				}
			}
		}
		c, err := tx.TwoFactor().GetConfig(ctx, u.ID)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}
		user, cfg = u, c
		return nil
	})
	if err != nil {
		metrics.AuthLoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return nil, err
	}

	res, err := a.issue(user, cfg.Active(), "login")
	if err != nil {
		metrics.AuthLoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	// Challenge dispatch happens outside the transaction; the mailer must not
	// hold a database transaction open.
	if res.Requires2FA {
		if err := a.twoFactor.Challenge(ctx, user, cfg); err != nil {
			metrics.AuthLoginsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	metrics.AuthLoginsTotal.WithLabelValues("ok").Inc()
	a.log.Info("login succeeded", "user_id", user.ID, "requires_2fa", res.Requires2FA)
	return res, nil
}

func (a *AuthServiceImpl) VerifyLogin(ctx context.Context, s *service.Session, code string) (*dto.SessionResult, error) {
	if code == "" {
		return nil, ErrEmptyCode
	}
	if s == nil || !s.Requires2FA {
		return nil, domain.ErrNotPending
	}

	if err := a.twoFactor.VerifyLogin(ctx, s.UserID, code); err != nil {
		return nil, err
	}

	var user *domain.User
	err := a.store.WithTx(ctx, func(tx storeTx) error {
		u, err := tx.Users().GetByID(ctx, s.UserID)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrUserNotFound
			}
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A fresh full token; the partial one is never upgraded in place.
	res, err := a.issue(user, false, "step_up")
	if err != nil {
		return nil, err
	}
	a.log.Info("2fa step-up completed", "user_id", user.ID)
	return res, nil
}

func (a *AuthServiceImpl) IssueSession(ctx context.Context, user *domain.User) (*dto.SessionResult, error) {
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	var cfg *domain.TwoFactorConfig
	err := a.store.WithTx(ctx, func(tx storeTx) error {
		c, err := tx.TwoFactor().GetConfig(ctx, user.ID)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}
		cfg = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	res, err := a.issue(user, cfg.Active(), "oauth")
	if err != nil {
		return nil, err
	}
	if res.Requires2FA {
		if err := a.twoFactor.Challenge(ctx, user, cfg); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (a *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmptyEmail
	}

	var (
		user  *domain.User
		token string
	)
	err := a.store.WithTx(ctx, func(tx storeTx) error {
		u, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				// No account: caller answers exactly as if one existed.
				return nil
			}
			return err
		}
		raw := make([]byte, resetTokenBytes)
		if _, err := rand.Read(raw); err != nil {
			return err
		}
		token = hex.EncodeToString(raw)
		tok := &domain.PasswordResetToken{
			ID:        uuid.New(),
			Token:     token,
			UserID:    u.ID,
			ExpiresAt: a.now().UTC().Add(a.cfg.ResetTokenTTL),
		}
		if err := tx.ResetTokens().Create(ctx, tok); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("request", "error").Inc()
		return "", err
	}
	if user == nil {
		metrics.PasswordResetsTotal.WithLabelValues("request", "no_account").Inc()
		return "", nil
	}

	if err := a.email.SendPasswordReset(ctx, user.Email, token); err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("request", "error").Inc()
		return "", fmt.Errorf("%w: sending reset email: %v", domain.ErrUpstream, err)
	}

	metrics.PasswordResetsTotal.WithLabelValues("request", "ok").Inc()
	a.log.Info("password reset requested", "user_id", user.ID)
	return token, nil
}

func (a *AuthServiceImpl) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" || password == "" {
		return ErrEmptyResetInput
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordLength
	}

	cred, err := a.passwords.Hash(password)
	if err != nil {
		return err
	}

	err = a.store.WithTx(ctx, func(tx storeTx) error {
		tok, err := tx.ResetTokens().Consume(ctx, token, a.now().UTC())
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrInvalidOrExpiredToken
			}
			return err
		}
		cred.UserID = tok.UserID
		if err := tx.Credentials().UpsertPassword(ctx, cred); err != nil {
			return err
		}
		// Any sibling tokens issued before this one die with it.
		return tx.ResetTokens().DeleteForUser(ctx, tok.UserID)
	})
	if err != nil {
		result := "error"
		if errors.Is(err, domain.ErrInvalidOrExpiredToken) {
			result = "rejected"
		}
		metrics.PasswordResetsTotal.WithLabelValues("consume", result).Inc()
		return err
	}

	metrics.PasswordResetsTotal.WithLabelValues("consume", "ok").Inc()
	a.log.Info("password reset completed", "user_id", cred.UserID)
	return nil
}

// issue signs a session token for the user. A partial result carries no user
// profile; the client learns nothing beyond the pending flag until the second
// factor clears.
func (a *AuthServiceImpl) issue(user *domain.User, requires2FA bool, flow string) (*dto.SessionResult, error) {
	token, expiresAt, err := a.tokens.Issue(service.Session{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		Requires2FA: requires2FA,
	})
	if err != nil {
		metrics.TokensIssuedTotal.WithLabelValues(flow, "error").Inc()
		return nil, err
	}
	metrics.TokensIssuedTotal.WithLabelValues(flow, "ok").Inc()

	res := &dto.SessionResult{
		Token:       token,
		ExpiresAt:   expiresAt,
		Requires2FA: requires2FA,
	}
	if !requires2FA {
		res.User = dto.NewUserInfo(user)
	}
	return res, nil
}

func loginResult(err error) string {
	if errors.Is(err, domain.ErrInvalidCredentials) {
		return "rejected"
	}
	return "error"
}
