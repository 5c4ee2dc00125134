package ports

import (
	"context"

	"github.com/shopmaster/store-system/internal/core/domain"
)

// AuthService implements registration and login against the identity
// store. Returned identities are always secret-stripped.
type AuthService interface {
	Register(ctx context.Context, name, email, secret string, role domain.Role) (*domain.Identity, error)
	Login(ctx context.Context, email, secret string) (*domain.Identity, error)
	// Token issues a signed session token binding the identity to the
	// given session id.
	Token(identity *domain.Identity, sessionID string) (string, error)
}
