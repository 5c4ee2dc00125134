package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopmaster/store-system/internal/core/domain"
	"github.com/shopmaster/store-system/internal/core/ports"
)

// AuthService implements registration and login. Secrets are bcrypt
// hashed before they reach the repository and stripped from every
// identity returned.
type AuthService struct {
	repo      ports.IdentityRepository
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(repo ports.IdentityRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{repo: repo, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

func (s *AuthService) Register(ctx context.Context, name, email, secret string, role domain.Role) (*domain.Identity, error) {
	email = domain.NormalizeEmail(email)
	if name == "" || email == "" || secret == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	identity := &domain.Identity{
		ID:         uuid.NewString(),
		Name:       name,
		Email:      email,
		SecretHash: string(hash),
		PhotoRef:   defaultPhotoRef(name),
		Role:       role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	created, err := s.repo.Create(ctx, identity)
	if err != nil {
		return nil, err
	}
	sanitized := created.Sanitized()
	return &sanitized, nil
}

func (s *AuthService) Login(ctx context.Context, email, secret string) (*domain.Identity, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || secret == "" {
		return nil, domain.ErrInvalidCredentials
	}

	identity, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		// An unknown email and a wrong secret are indistinguishable to
		// the caller.
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(identity.SecretHash), []byte(secret)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	sanitized := identity.Sanitized()
	return &sanitized, nil
}

// Token issues a signed JWT tying the identity to a live session id.
// The effective role is not a claim: it is recomputed at every store
// binding and lives in the session.
func (s *AuthService) Token(identity *domain.Identity, sessionID string) (string, error) {
	claims := jwt.MapClaims{
		"sid":   sessionID,
		"email": identity.Email,
		"exp":   time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

func defaultPhotoRef(name string) string {
	return fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=%s", name)
}
