package impl

import (
	"errors"
	"time"

	"accountd/internal/domain"
	"accountd/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

type TokenConfig struct {
	Issuer     string
	TTL        time.Duration // falls back to DefaultTokenTTL
	SigningKey []byte        // HS256 secret, >= 32 bytes
}

// SessionClaims is the wire form of a session token. The requires2FA flag is
// the partial/full distinction; clients cannot drop it without breaking the
// signature.
type SessionClaims struct {
	Username    string `json:"username"`
	Role        string `json:"role,omitempty"`
	Requires2FA bool   `json:"requires2FA"`
	jwt.RegisteredClaims
}

type TokenServiceImpl struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenServiceHS256(cfg TokenConfig) *TokenServiceImpl {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	return &TokenServiceImpl{cfg: cfg, now: time.Now}
}

func (t *TokenServiceImpl) Issue(s service.Session) (string, time.Time, error) {
	now := t.now().UTC()
	expiresAt := now.Add(t.cfg.TTL)
	claims := SessionClaims{
		Username:    s.Username,
		Role:        s.Role,
		Requires2FA: s.Requires2FA,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   s.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.cfg.SigningKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (t *TokenServiceImpl) Verify(tokenStr string) (*service.Session, error) {
	claims := &SessionClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	_, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.cfg.SigningKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenMalformed
	}
	if t.cfg.Issuer != "" && claims.Issuer != t.cfg.Issuer {
		return nil, domain.ErrTokenMalformed
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, domain.ErrTokenMalformed
	}
	return &service.Session{
		UserID:      userID,
		Username:    claims.Username,
		Role:        claims.Role,
		Requires2FA: claims.Requires2FA,
	}, nil
}
