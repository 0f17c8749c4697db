package impl

import (
	"fmt"

	"accountd/internal/domain"
)

// MinPasswordLength is deliberately lax for now; raise before any real
// deployment.
const MinPasswordLength = 4

var (
	ErrEmptyCredential = fmt.Errorf("%w: username, email and password are required", domain.ErrValidation)
	ErrEmptyLogin      = fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	ErrEmptyEmail      = fmt.Errorf("%w: email is required", domain.ErrValidation)
	ErrEmptyPassword   = fmt.Errorf("%w: password is required", domain.ErrValidation)
	ErrEmptyCode       = fmt.Errorf("%w: code is required", domain.ErrValidation)
	ErrEmptyResetInput = fmt.Errorf("%w: token and password are required", domain.ErrValidation)
	ErrPasswordLength  = fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
)
