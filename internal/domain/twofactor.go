package domain

import (
	"time"

	"github.com/google/uuid"
)

// TwoFactorMethod is a closed set; every dispatch on it must switch
// exhaustively and reject unknown values.
type TwoFactorMethod string

const (
	MethodEmail TwoFactorMethod = "email"
	MethodTOTP  TwoFactorMethod = "totp"
)

func (m TwoFactorMethod) Known() bool { return m == MethodEmail || m == MethodTOTP }

// TwoFactorConfig is the per-user second-factor enrollment, at most one row.
// Created disabled; Enabled flips true only after one successful verification.
type TwoFactorConfig struct {
	UserID     UserID          `gorm:"type:uuid;primaryKey" db:"user_id"`
	Method     TwoFactorMethod `gorm:"type:text;not null" db:"method"`
	TOTPSecret *string         `gorm:"type:text" db:"totp_secret"`
	Enabled    bool            `gorm:"not null;default:false" db:"enabled"`
	CreatedAt  time.Time       `gorm:"not null" db:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" db:"updated_at"`
}

func (TwoFactorConfig) TableName() string { return "two_factor_configs" }

// Active reports whether the user has a confirmed second factor, i.e. whether
// logins must be challenged.
func (c *TwoFactorConfig) Active() bool { return c != nil && c.Enabled }

// TwoFactorCode is a one-time email code. Several unexpired codes may coexist
// for a user; exact match plus non-expiry is the sole acceptance criterion.
type TwoFactorCode struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" db:"id"`
	UserID    UserID    `gorm:"type:uuid;index" db:"user_id"`
	Code      string    `gorm:"type:text;not null" db:"code"`
	ExpiresAt time.Time `gorm:"not null" db:"expires_at"`
	CreatedAt time.Time `gorm:"not null" db:"created_at"`
}

func (TwoFactorCode) TableName() string { return "two_factor_codes" }
