package ports

import (
	"context"

	"github.com/calliperhq/calliper/internal/core/domain"
)

// IdentityProvider is the narrow contract against the external identity
// service. Callers hand over sanitized, validated strings only; provider
// failures surface as opaque errors and are never shown to clients verbatim.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, password string) (domain.Account, error)
	SignIn(ctx context.Context, email, password string) (domain.Session, error)
	VerifyEmail(ctx context.Context, token string) error

	// EmailExists is the administrative lookup behind the check-email
	// endpoint, which is allowed to reveal existence by contract.
	EmailExists(ctx context.Context, email string) (bool, error)

	// ValidateSession resolves a bearer token to its account.
	ValidateSession(ctx context.Context, token string) (domain.Account, error)
}
