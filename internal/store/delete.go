package store

import (
	"context"

	"accountd/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeleteUserData removes the user's record and every dependent row, returning
// counts of affected resources captured before deletion.
func (s *Store) DeleteUserData(ctx context.Context, userID uuid.UUID) (map[string]int64, error) {
	deleted := map[string]int64{}

	err := s.WithTx(ctx, func(tx *Store) error {
		db := tx.DB.WithContext(ctx)

		count := func(label string, query *gorm.DB) error {
			var total int64
			if err := query.Count(&total).Error; err != nil {
				return err
			}
			deleted[label] = total
			return nil
		}

		if err := count("users", db.Model(&domain.User{}).Where("id = ?", userID)); err != nil {
			return err
		}
		if err := count("passwordCredentials", db.Model(&domain.PasswordCredential{}).Where("user_id = ?", userID)); err != nil {
			return err
		}
		if err := count("twoFactorConfigs", db.Model(&domain.TwoFactorConfig{}).Where("user_id = ?", userID)); err != nil {
			return err
		}
		if err := count("twoFactorCodes", db.Model(&domain.TwoFactorCode{}).Where("user_id = ?", userID)); err != nil {
			return err
		}
		if err := count("passwordResets", db.Model(&domain.PasswordResetToken{}).Where("user_id = ?", userID)); err != nil {
			return err
		}

		if deleted["users"] == 0 {
			return ErrRecordNotFound
		}

		for _, model := range []any{
			&domain.PasswordCredential{},
			&domain.TwoFactorConfig{},
			&domain.TwoFactorCode{},
			&domain.PasswordResetToken{},
		} {
			if err := db.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return err
			}
		}

		return db.Where("id = ?", userID).Delete(&domain.User{}).Error
	})

	return deleted, err
}
