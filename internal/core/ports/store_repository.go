package ports

import (
	"context"

	"github.com/shopmaster/store-system/internal/core/domain"
)

// StoreRepository is the registry of all stores. Every mutation is a
// read-merge-write: callers load the latest snapshot, compute a
// domain.StorePatch, and hand it back, so independent updates to
// different fields of the same store never clobber each other.
type StoreRepository interface {
	Create(ctx context.Context, store *domain.Store) error
	// Get returns a deep copy of the store, or domain.ErrStoreNotFound.
	Get(ctx context.Context, id string) (*domain.Store, error)
	// List returns deep copies of every store in the registry.
	List(ctx context.Context) ([]domain.Store, error)
	// Patch merges a partial update into the addressed store. A patch
	// against an absent store is a no-op, not an error.
	Patch(ctx context.Context, id string, patch domain.StorePatch) error
}
