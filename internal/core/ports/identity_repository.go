package ports

import (
	"context"

	"github.com/shopmaster/store-system/internal/core/domain"
)

// IdentityRepository defines persistence for registered accounts. It is
// the only component that ever sees a credential hash.
type IdentityRepository interface {
	// FindByEmail looks up an account by normalized email. Returns
	// domain.ErrIdentityNotFound when no account matches.
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	// Create persists a new account. Returns domain.ErrIdentityExists
	// when the email is already registered.
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	// UpdateProfile applies profile-field patches to an existing account.
	UpdateProfile(ctx context.Context, email string, patch domain.ProfilePatch) (*domain.Identity, error)
}
