package store

import (
	"context"
	"strings"
	"time"

	"accountd/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStore struct{ db *gorm.DB }

func (s *Store) Users() *UserStore { return &UserStore{db: s.DB} }

func (u *UserStore) Create(ctx context.Context, usr *domain.User) error {
	if usr.ID == uuid.Nil {
		usr.ID = uuid.New()
	}
	return translate(u.db.WithContext(ctx).Create(usr).Error)
}

func (u *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (u *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (u *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetByUsernameOrEmail resolves the single identifier the login and
// forgot-password forms accept.
func (u *UserStore) GetByUsernameOrEmail(ctx context.Context, id string) (*domain.User, error) {
	if strings.ContainsRune(id, '@') {
		if user, err := u.GetByEmail(ctx, id); err == nil {
			return user, nil
		}
	}
	return u.GetByUsername(ctx, id)
}

func (u *UserStore) GetByGithubID(ctx context.Context, githubID string) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "github_id = ?", githubID).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (u *UserStore) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := u.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}

// Update applies a partial update. Only email and role are settable here;
// password changes go through the credential store.
func (u *UserStore) Update(ctx context.Context, id uuid.UUID, email, role *string) (*domain.User, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if email != nil {
		updates["email"] = *email
	}
	if role != nil {
		updates["role"] = *role
	}
	res := u.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return u.GetByID(ctx, id)
}

func (u *UserStore) SetAvatarURL(ctx context.Context, id uuid.UUID, url string) error {
	return translate(u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"avatar_url": url, "updated_at": time.Now().UTC()}).Error)
}
