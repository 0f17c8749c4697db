package impl

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"math/big"
	"time"

	"accountd/internal/domain"
	"accountd/internal/dto"
	"accountd/internal/observability/metrics"
	"accountd/internal/service"
	"accountd/internal/store"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const DefaultTwoFactorCodeTTL = 10 * time.Minute

// totpValidateOpts accepts codes from up to two 30-second steps away, so a
// code stays usable for about a minute of clock drift.
var totpValidateOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      2,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

type TwoFactorConfig struct {
	Issuer  string        // TOTP issuer shown in authenticator apps
	CodeTTL time.Duration // falls back to DefaultTwoFactorCodeTTL
}

type TwoFactorServiceImpl struct {
	store     dataStore
	passwords service.PasswordService
	email     service.EmailService
	cfg       TwoFactorConfig
	log       *slog.Logger
	now       func() time.Time
}

func NewTwoFactorService(
	st *store.Store,
	passwords service.PasswordService,
	email service.EmailService,
	cfg TwoFactorConfig,
	log *slog.Logger,
) *TwoFactorServiceImpl {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultTwoFactorCodeTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "accountd"
	}
	if log == nil {
		log = slog.Default()
	}
	return &TwoFactorServiceImpl{
		store:     gormStoreAdapter{store: st},
		passwords: passwords,
		email:     email,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

func (t *TwoFactorServiceImpl) Setup(ctx context.Context, userID domain.UserID, method domain.TwoFactorMethod, password string) (*dto.TwoFactorSetupResponse, error) {
	if !method.Known() {
		return nil, domain.ErrUnknownTwoFactorMethod
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	var (
		resp *dto.TwoFactorSetupResponse
		user *domain.User
		code string
	)
	err := t.store.WithTx(ctx, func(tx storeTx) error {
		u, err := t.confirmPassword(ctx, tx, userID, password)
		if err != nil {
			return err
		}
		user = u

		if _, err := tx.TwoFactor().GetConfig(ctx, userID); err == nil {
			return domain.ErrTwoFactorConfigured
		} else if !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}

		switch method {
		case domain.MethodEmail:
			if err := tx.TwoFactor().CreateConfig(ctx, &domain.TwoFactorConfig{
				UserID: userID,
				Method: domain.MethodEmail,
			}); err != nil {
				return err
			}
			code, err = t.issueCode(ctx, tx, userID)
			if err != nil {
				return err
			}
			resp = &dto.TwoFactorSetupResponse{
				Method:    string(domain.MethodEmail),
				Message:   "Verification code sent to your email",
				DevCode:   code,
				ExpiresIn: "10 minutes",
			}
			return nil

		case domain.MethodTOTP:
			key, err := totp.Generate(totp.GenerateOpts{
				Issuer:      t.cfg.Issuer,
				AccountName: u.Username,
			})
			if err != nil {
				return err
			}
			secret := key.Secret()
			if err := tx.TwoFactor().CreateConfig(ctx, &domain.TwoFactorConfig{
				UserID:     userID,
				Method:     domain.MethodTOTP,
				TOTPSecret: &secret,
			}); err != nil {
				return err
			}
			qr, err := qrCodePNG(key)
			if err != nil {
				return err
			}
			resp = &dto.TwoFactorSetupResponse{
				Method:     string(domain.MethodTOTP),
				Secret:     secret,
				OTPAuthURL: key.URL(),
				QRCode:     qr,
				Message:    "Scan the QR code with your authenticator app, then confirm with a code",
			}
			return nil

		default:
			return domain.ErrUnknownTwoFactorMethod
		}
	})
	if err != nil {
		return nil, err
	}

	if method == domain.MethodEmail {
		if err := t.email.SendTwoFactorCode(ctx, user.Email, code); err != nil {
			metrics.TwoFactorChallengesTotal.WithLabelValues(string(method), "error").Inc()
			return nil, fmt.Errorf("%w: sending verification code: %v", domain.ErrUpstream, err)
		}
		metrics.TwoFactorChallengesTotal.WithLabelValues(string(method), "ok").Inc()
	}

	t.log.Info("2fa setup started", "user_id", userID, "method", method)
	return resp, nil
}

func (t *TwoFactorServiceImpl) Confirm(ctx context.Context, userID domain.UserID, code string) error {
	if code == "" {
		return ErrEmptyCode
	}
	err := t.store.WithTx(ctx, func(tx storeTx) error {
		cfg, err := tx.TwoFactor().GetConfig(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrTwoFactorNotConfigured
			}
			return err
		}
		if err := t.verifyCode(ctx, tx, cfg, code); err != nil {
			return err
		}
		return tx.TwoFactor().Enable(ctx, userID)
	})
	if err != nil {
		return err
	}
	t.log.Info("2fa enabled", "user_id", userID)
	return nil
}

func (t *TwoFactorServiceImpl) Challenge(ctx context.Context, user *domain.User, cfg *domain.TwoFactorConfig) error {
	if !cfg.Active() {
		return domain.ErrTwoFactorNotConfigured
	}
	// TOTP needs no dispatch; the authenticator app has the secret.
	if cfg.Method != domain.MethodEmail {
		return nil
	}

	var code string
	err := t.store.WithTx(ctx, func(tx storeTx) error {
		var err error
		code, err = t.issueCode(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		metrics.TwoFactorChallengesTotal.WithLabelValues(string(cfg.Method), "error").Inc()
		return err
	}
	if err := t.email.SendTwoFactorCode(ctx, user.Email, code); err != nil {
		metrics.TwoFactorChallengesTotal.WithLabelValues(string(cfg.Method), "error").Inc()
		return fmt.Errorf("%w: sending verification code: %v", domain.ErrUpstream, err)
	}
	metrics.TwoFactorChallengesTotal.WithLabelValues(string(cfg.Method), "ok").Inc()
	return nil
}

func (t *TwoFactorServiceImpl) VerifyLogin(ctx context.Context, userID domain.UserID, code string) error {
	if code == "" {
		return ErrEmptyCode
	}
	var method domain.TwoFactorMethod
	err := t.store.WithTx(ctx, func(tx storeTx) error {
		cfg, err := tx.TwoFactor().GetConfig(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrTwoFactorNotConfigured
			}
			return err
		}
		if !cfg.Active() {
			return domain.ErrTwoFactorNotConfigured
		}
		method = cfg.Method
		return t.verifyCode(ctx, tx, cfg, code)
	})
	if err != nil {
		if method != "" {
			metrics.TwoFactorVerificationsTotal.WithLabelValues(string(method), "rejected").Inc()
		}
		return err
	}
	metrics.TwoFactorVerificationsTotal.WithLabelValues(string(method), "ok").Inc()
	return nil
}

func (t *TwoFactorServiceImpl) Teardown(ctx context.Context, userID domain.UserID, password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	err := t.store.WithTx(ctx, func(tx storeTx) error {
		if _, err := t.confirmPassword(ctx, tx, userID, password); err != nil {
			return err
		}
		if _, err := tx.TwoFactor().GetConfig(ctx, userID); err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrTwoFactorNotConfigured
			}
			return err
		}
		if err := tx.TwoFactor().DeleteConfig(ctx, userID); err != nil {
			return err
		}
		return tx.TwoFactor().DeleteCodesForUser(ctx, userID)
	})
	if err != nil {
		return err
	}
	t.log.Info("2fa disabled", "user_id", userID)
	return nil
}

// confirmPassword rechecks the account password; enrollment changes require
// more than a live session.
func (t *TwoFactorServiceImpl) confirmPassword(ctx context.Context, tx storeTx, userID domain.UserID, password string) (*domain.User, error) {
	user, err := tx.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	cred, err := tx.Credentials().GetPasswordByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if _, ok := t.passwords.Verify(password, cred); !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (t *TwoFactorServiceImpl) issueCode(ctx context.Context, tx storeTx, userID domain.UserID) (string, error) {
	code, err := randomCode()
	if err != nil {
		return "", err
	}
	err = tx.TwoFactor().CreateCode(ctx, &domain.TwoFactorCode{
		ID:        uuid.New(),
		UserID:    userID,
		Code:      code,
		ExpiresAt: t.now().UTC().Add(t.cfg.CodeTTL),
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

func (t *TwoFactorServiceImpl) verifyCode(ctx context.Context, tx storeTx, cfg *domain.TwoFactorConfig, code string) error {
	switch cfg.Method {
	case domain.MethodEmail:
		err := tx.TwoFactor().ConsumeCode(ctx, cfg.UserID, code, t.now().UTC())
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrInvalidCode
			}
			return err
		}
		return nil

	case domain.MethodTOTP:
		if cfg.TOTPSecret == nil {
			return domain.ErrTwoFactorNotConfigured
		}
		ok, err := totp.ValidateCustom(code, *cfg.TOTPSecret, t.now().UTC(), totpValidateOpts)
		if err != nil || !ok {
			return domain.ErrInvalidCode
		}
		return nil

	default:
		return domain.ErrUnknownTwoFactorMethod
	}
}

// qrCodePNG renders the enrollment key as an inline data URI for direct use
// in an <img> tag.
func qrCodePNG(key *otp.Key) (string, error) {
	img, err := key.Image(200, 200)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// randomCode draws a uniform six-digit code.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
