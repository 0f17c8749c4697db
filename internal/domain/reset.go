package domain

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken is single-use. Creating a new one invalidates all prior
// tokens for the same user; expired rows are deleted by the read that finds
// them.
type PasswordResetToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" db:"id"`
	Token     string    `gorm:"type:text;uniqueIndex:ux_password_resets_token" db:"token"`
	UserID    UserID    `gorm:"type:uuid;index" db:"user_id"`
	ExpiresAt time.Time `gorm:"not null" db:"expires_at"`
	CreatedAt time.Time `gorm:"not null" db:"created_at"`
}

func (PasswordResetToken) TableName() string { return "password_resets" }
