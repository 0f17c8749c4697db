package impl

import (
	"context"
	"errors"
	"time"

	"accountd/internal/domain"
	"accountd/internal/store"

	"github.com/google/uuid"
)

// Narrow store interfaces: the services declare exactly what they consume so
// tests can substitute an in-memory implementation for the gorm store.

type dataStore interface {
	WithTx(ctx context.Context, fn func(tx storeTx) error) error
}

type storeTx interface {
	Users() userStore
	Credentials() credentialStore
	TwoFactor() twoFactorStore
	ResetTokens() resetTokenStore
}

type userStore interface {
	Create(ctx context.Context, usr *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsernameOrEmail(ctx context.Context, id string) (*domain.User, error)
	GetByGithubID(ctx context.Context, githubID string) (*domain.User, error)
	SetAvatarURL(ctx context.Context, id uuid.UUID, url string) error
}

type credentialStore interface {
	UpsertPassword(ctx context.Context, c *domain.PasswordCredential) error
	GetPasswordByUserID(ctx context.Context, userID uuid.UUID) (*domain.PasswordCredential, error)
}

type twoFactorStore interface {
	CreateConfig(ctx context.Context, cfg *domain.TwoFactorConfig) error
	GetConfig(ctx context.Context, userID uuid.UUID) (*domain.TwoFactorConfig, error)
	Enable(ctx context.Context, userID uuid.UUID) error
	DeleteConfig(ctx context.Context, userID uuid.UUID) error
	CreateCode(ctx context.Context, code *domain.TwoFactorCode) error
	ConsumeCode(ctx context.Context, userID uuid.UUID, code string, now time.Time) error
	DeleteCodesForUser(ctx context.Context, userID uuid.UUID) error
}

type resetTokenStore interface {
	Create(ctx context.Context, tok *domain.PasswordResetToken) error
	Consume(ctx context.Context, token string, now time.Time) (*domain.PasswordResetToken, error)
	DeleteForUser(ctx context.Context, userID uuid.UUID) error
}

type gormStoreAdapter struct {
	store *store.Store
}

func (g gormStoreAdapter) WithTx(ctx context.Context, fn func(tx storeTx) error) error {
	if g.store == nil {
		return errors.New("nil store")
	}
	return g.store.WithTx(ctx, func(tx *store.Store) error {
		return fn(gormTxAdapter{tx: tx})
	})
}

type gormTxAdapter struct {
	tx *store.Store
}

func (g gormTxAdapter) Users() userStore             { return g.tx.Users() }
func (g gormTxAdapter) Credentials() credentialStore { return g.tx.Credentials() }
func (g gormTxAdapter) TwoFactor() twoFactorStore    { return g.tx.TwoFactor() }
func (g gormTxAdapter) ResetTokens() resetTokenStore { return g.tx.ResetTokens() }
