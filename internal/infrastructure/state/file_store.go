// Package state provides the file-backed snapshot store: the whole
// registry (accounts and stores) serialized as one JSON document,
// reloaded on startup and rewritten after every mutation. It is the
// single-node serialization point for all concurrent writers.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopmaster/store-system/internal/core/domain"
	"github.com/shopmaster/store-system/internal/core/ports"
)

// accountRecord is the persisted shape of an identity. It carries the
// credential hash, which the domain type deliberately never serializes.
type accountRecord struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	SecretHash      string      `json:"secret_hash"`
	PhotoRef        string      `json:"photo_ref,omitempty"`
	Role            domain.Role `json:"role"`
	DisplayCurrency string      `json:"display_currency,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type snapshot struct {
	Accounts []accountRecord `json:"accounts"`
	Stores   []domain.Store  `json:"all_stores"`
}

// FileStore holds the in-memory registry behind both repository views.
// A malformed or missing snapshot degrades to an empty registry;
// startup never fails on bad persisted state.
type FileStore struct {
	path string
	log  zerolog.Logger

	mu         sync.Mutex
	identities map[string]accountRecord // keyed by normalized email
	stores     map[string]*domain.Store
}

func NewFileStore(path string, log zerolog.Logger) *FileStore {
	fs := &FileStore{
		path:       path,
		log:        log,
		identities: make(map[string]accountRecord),
		stores:     make(map[string]*domain.Store),
	}
	fs.load()
	return fs
}

// Identities exposes the account half of the snapshot.
func (f *FileStore) Identities() ports.IdentityRepository { return identityView{f} }

// Stores exposes the store-registry half of the snapshot.
func (f *FileStore) Stores() ports.StoreRepository { return storeView{f} }

func (f *FileStore) load() {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.log.Warn().Err(err).Str("path", f.path).Msg("state file unreadable, starting empty")
		}
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		f.log.Warn().Err(err).Str("path", f.path).Msg("state file malformed, starting empty")
		return
	}

	for _, acc := range snap.Accounts {
		f.identities[domain.NormalizeEmail(acc.Email)] = acc
	}
	for i := range snap.Stores {
		store := snap.Stores[i].Clone()
		f.stores[store.ID] = &store
	}
	f.log.Info().Int("accounts", len(f.identities)).Int("stores", len(f.stores)).Msg("state loaded")
}

// save rewrites the snapshot via a temp file and rename. Failures are
// logged and swallowed: the in-memory state stays authoritative and a
// persistence error never surfaces as a request failure.
func (f *FileStore) save() {
	snap := snapshot{
		Accounts: make([]accountRecord, 0, len(f.identities)),
		Stores:   make([]domain.Store, 0, len(f.stores)),
	}
	for _, acc := range f.identities {
		snap.Accounts = append(snap.Accounts, acc)
	}
	for _, store := range f.stores {
		snap.Stores = append(snap.Stores, store.Clone())
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		f.log.Warn().Err(err).Msg("state snapshot marshal failed")
		return
	}

	tmp := f.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		f.log.Warn().Err(err).Msg("state dir create failed")
		return
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		f.log.Warn().Err(err).Str("path", tmp).Msg("state snapshot write failed")
		return
	}
	if err := os.Rename(tmp, f.path); err != nil {
		f.log.Warn().Err(err).Str("path", f.path).Msg("state snapshot rename failed")
	}
}

func toIdentity(acc accountRecord) *domain.Identity {
	return &domain.Identity{
		ID:              acc.ID,
		Name:            acc.Name,
		Email:           acc.Email,
		SecretHash:      acc.SecretHash,
		PhotoRef:        acc.PhotoRef,
		Role:            acc.Role,
		DisplayCurrency: acc.DisplayCurrency,
		CreatedAt:       acc.CreatedAt,
		UpdatedAt:       acc.UpdatedAt,
	}
}

type identityView struct{ f *FileStore }

func (v identityView) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	v.f.mu.Lock()
	defer v.f.mu.Unlock()
	acc, ok := v.f.identities[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return toIdentity(acc), nil
}

func (v identityView) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	v.f.mu.Lock()
	defer v.f.mu.Unlock()
	key := domain.NormalizeEmail(identity.Email)
	if _, exists := v.f.identities[key]; exists {
		return nil, domain.ErrIdentityExists
	}
	v.f.identities[key] = accountRecord{
		ID:              identity.ID,
		Name:            identity.Name,
		Email:           key,
		SecretHash:      identity.SecretHash,
		PhotoRef:        identity.PhotoRef,
		Role:            identity.Role,
		DisplayCurrency: identity.DisplayCurrency,
		CreatedAt:       identity.CreatedAt,
		UpdatedAt:       identity.UpdatedAt,
	}
	v.f.save()
	return toIdentity(v.f.identities[key]), nil
}

func (v identityView) UpdateProfile(_ context.Context, email string, patch domain.ProfilePatch) (*domain.Identity, error) {
	v.f.mu.Lock()
	defer v.f.mu.Unlock()
	key := domain.NormalizeEmail(email)
	acc, ok := v.f.identities[key]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	if patch.PhotoRef != nil {
		acc.PhotoRef = *patch.PhotoRef
	}
	if patch.DisplayCurrency != nil {
		acc.DisplayCurrency = *patch.DisplayCurrency
	}
	acc.UpdatedAt = time.Now().UTC()
	v.f.identities[key] = acc
	v.f.save()
	return toIdentity(acc), nil
}

type storeView struct{ f *FileStore }

func (v storeView) Create(_ context.Context, store *domain.Store) error {
	v.f.mu.Lock()
	defer v.f.mu.Unlock()
	if _, exists := v.f.stores[store.ID]; exists {
		return fmt.Errorf("store %s already exists", store.ID)
	}
	clone := store.Clone()
	v.f.stores[store.ID] = &clone
	v.f.save()
	return nil
}

func (v storeView) Get(_ context.Context, id string) (*domain.Store, error) {
	v.f.mu.Lock()
	defer v.f.mu.Unlock()
	store, ok := v.f.stores[id]
	if !ok {
		return nil, domain.ErrStoreNotFound
	}
	clone := store.Clone()
	return &clone, nil
}

func (v storeView) List(_ context.Context) ([]domain.Store, error) {
	v.f.mu.Lock()
	defer v.f.mu.Unlock()
	out := make([]domain.Store, 0, len(v.f.stores))
	for _, store := range v.f.stores {
		out = append(out, store.Clone())
	}
	return out, nil
}

// Patch merges a partial update under the registry lock, so two
// sessions patching different fields of the same store both land.
func (v storeView) Patch(_ context.Context, id string, patch domain.StorePatch) error {
	v.f.mu.Lock()
	defer v.f.mu.Unlock()
	store, ok := v.f.stores[id]
	if !ok {
		return nil
	}
	store.Apply(patch)
	v.f.save()
	return nil
}
