package service

import (
	"context"

	"accountd/internal/domain"
)

// OAuthProfile is the provider-supplied identity: an immutable provider id
// plus whatever profile fields the provider exposes.
type OAuthProfile struct {
	ProviderID string
	Login      string
	Email      string
	AvatarURL  string
}

type OAuthService interface {
	AuthorizeURL() string
	// Exchange swaps the authorization code for the provider profile and
	// resolves it to a local account, creating one if needed.
	Exchange(ctx context.Context, code string) (*domain.User, error)
}
