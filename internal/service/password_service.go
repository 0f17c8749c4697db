package service

import "accountd/internal/domain"

type PasswordService interface {
	// Hash returns a credential carrying the derived key, salt and the
	// parameters it was derived with. UserID is left for the caller to fill.
	Hash(password string) (*domain.PasswordCredential, error)
	// Verify reports whether the password matches and whether the stored
	// credential should be transparently re-hashed under current policy.
	Verify(password string, cred *domain.PasswordCredential) (rehashNeeded, ok bool)
}
