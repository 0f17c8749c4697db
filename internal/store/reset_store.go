package store

import (
	"context"
	"time"

	"accountd/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ResetTokenStore struct{ db *gorm.DB }

func (s *Store) ResetTokens() *ResetTokenStore { return &ResetTokenStore{db: s.DB} }

// Create stores a fresh reset token after removing any outstanding ones for
// the user (single-active-token policy).
func (r *ResetTokenStore) Create(ctx context.Context, tok *domain.PasswordResetToken) error {
	if tok.ID == uuid.Nil {
		tok.ID = uuid.New()
	}
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now().UTC()
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("user_id = ?", tok.UserID).Delete(&domain.PasswordResetToken{}).Error; err != nil {
		return translate(err)
	}
	return translate(db.Create(tok).Error)
}

// Consume looks up the token and deletes it in the same statement; a token
// that was already consumed, never existed, or sat past its expiry yields
// ErrRecordNotFound. Expired rows are deleted on discovery.
func (r *ResetTokenStore) Consume(ctx context.Context, token string, now time.Time) (*domain.PasswordResetToken, error) {
	var tok domain.PasswordResetToken
	db := r.db.WithContext(ctx)
	if err := db.First(&tok, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	if !tok.ExpiresAt.After(now) {
		db.Where("id = ?", tok.ID).Delete(&domain.PasswordResetToken{})
		return nil, ErrRecordNotFound
	}
	res := db.Where("id = ?", tok.ID).Delete(&domain.PasswordResetToken{})
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race against a concurrent consume.
		return nil, ErrRecordNotFound
	}
	return &tok, nil
}

func (r *ResetTokenStore) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	return translate(r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.PasswordResetToken{}).Error)
}
