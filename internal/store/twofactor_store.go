package store

import (
	"context"
	"time"

	"accountd/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TwoFactorStore struct{ db *gorm.DB }

func (s *Store) TwoFactor() *TwoFactorStore { return &TwoFactorStore{db: s.DB} }

func (t *TwoFactorStore) CreateConfig(ctx context.Context, cfg *domain.TwoFactorConfig) error {
	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	return translate(t.db.WithContext(ctx).Create(cfg).Error)
}

func (t *TwoFactorStore) GetConfig(ctx context.Context, userID uuid.UUID) (*domain.TwoFactorConfig, error) {
	var cfg domain.TwoFactorConfig
	if err := t.db.WithContext(ctx).First(&cfg, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &cfg, nil
}

func (t *TwoFactorStore) Enable(ctx context.Context, userID uuid.UUID) error {
	res := t.db.WithContext(ctx).Model(&domain.TwoFactorConfig{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"enabled": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (t *TwoFactorStore) DeleteConfig(ctx context.Context, userID uuid.UUID) error {
	return translate(t.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.TwoFactorConfig{}).Error)
}

func (t *TwoFactorStore) CreateCode(ctx context.Context, code *domain.TwoFactorCode) error {
	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}
	return translate(t.db.WithContext(ctx).Create(code).Error)
}

// ConsumeCode deletes the matching unexpired code in a single statement, so a
// code can be accepted at most once even under concurrent verification. Rows
// already past expiry are swept on the same call.
func (t *TwoFactorStore) ConsumeCode(ctx context.Context, userID uuid.UUID, code string, now time.Time) error {
	res := t.db.WithContext(ctx).
		Where("user_id = ? AND code = ? AND expires_at > ?", userID, code, now).
		Delete(&domain.TwoFactorCode{})
	if res.Error != nil {
		return translate(res.Error)
	}
	// Opportunistic cleanup of whatever has expired for this user.
	t.db.WithContext(ctx).
		Where("user_id = ? AND expires_at <= ?", userID, now).
		Delete(&domain.TwoFactorCode{})
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (t *TwoFactorStore) DeleteCodesForUser(ctx context.Context, userID uuid.UUID) error {
	return translate(t.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.TwoFactorCode{}).Error)
}
