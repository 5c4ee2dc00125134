package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopmaster/store-system/internal/core/domain"
)

func testPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "state.json")
}

func sampleIdentity() *domain.Identity {
	return &domain.Identity{
		ID:         "acc-1",
		Name:       "Priya",
		Email:      "priya@example.com",
		SecretHash: "$2a$10$fakehash",
		Role:       domain.RoleOwner,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
}

func sampleStore(id string) *domain.Store {
	price := 4.5
	return &domain.Store{
		ID: id,
		Config: domain.StoreConfig{
			DisplayName: "Corner Tea",
			BrandID:     "waghbakri",
			Country:     "India",
			Provisioned: true,
			OwnerEmail:  "priya@example.com",
			StaffEmails: []string{"staff@example.com"},
			Presence:    map[string]domain.PresenceRecord{},
		},
		Catalog: []domain.CatalogItem{
			{ID: "item-1", Name: "Masala Chai", Price: &price, SalesCount: 2},
		},
	}
}

func TestFileStoreIdentityRoundTrip(t *testing.T) {
	path := testPath(t)
	ctx := context.Background()

	fs := NewFileStore(path, zerolog.Nop())
	if _, err := fs.Identities().Create(ctx, sampleIdentity()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Lookup is case-insensitive and the hash survives persistence.
	reopened := NewFileStore(path, zerolog.Nop())
	got, err := reopened.Identities().FindByEmail(ctx, "PRIYA@Example.com")
	if err != nil {
		t.Fatalf("FindByEmail() after reopen error = %v", err)
	}
	if got.SecretHash != "$2a$10$fakehash" {
		t.Errorf("SecretHash = %q, want persisted hash", got.SecretHash)
	}
	if got.Role != domain.RoleOwner {
		t.Errorf("Role = %q, want %q", got.Role, domain.RoleOwner)
	}
}

func TestFileStoreDuplicateEmail(t *testing.T) {
	fs := NewFileStore(testPath(t), zerolog.Nop())
	ctx := context.Background()

	if _, err := fs.Identities().Create(ctx, sampleIdentity()); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	dup := sampleIdentity()
	dup.ID = "acc-2"
	dup.Email = "Priya@EXAMPLE.com"
	if _, err := fs.Identities().Create(ctx, dup); err != domain.ErrIdentityExists {
		t.Errorf("duplicate Create() error = %v, want ErrIdentityExists", err)
	}
}

func TestFileStoreMalformedSnapshot(t *testing.T) {
	path := testPath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	fs := NewFileStore(path, zerolog.Nop())
	stores, err := fs.Stores().List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(stores) != 0 {
		t.Errorf("List() = %d stores, want empty registry after malformed snapshot", len(stores))
	}
}

func TestFileStoreStoreRoundTrip(t *testing.T) {
	path := testPath(t)
	ctx := context.Background()

	fs := NewFileStore(path, zerolog.Nop())
	if err := fs.Stores().Create(ctx, sampleStore("store-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	reopened := NewFileStore(path, zerolog.Nop())
	got, err := reopened.Stores().Get(ctx, "store-1")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got.Config.DisplayName != "Corner Tea" {
		t.Errorf("DisplayName = %q", got.Config.DisplayName)
	}
	if got.Catalog[0].Price == nil || *got.Catalog[0].Price != 4.5 {
		t.Errorf("Price did not survive persistence: %+v", got.Catalog[0])
	}
}

func TestFileStorePatchMergesFields(t *testing.T) {
	fs := NewFileStore(testPath(t), zerolog.Nop())
	ctx := context.Background()

	if err := fs.Stores().Create(ctx, sampleStore("store-1")); err != nil {
		t.Fatal(err)
	}

	name := "Renamed Tea"
	if err := fs.Stores().Patch(ctx, "store-1", domain.StorePatch{
		Config: &domain.ConfigPatch{DisplayName: &name},
	}); err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if err := fs.Stores().Patch(ctx, "store-1", domain.StorePatch{
		Config: &domain.ConfigPatch{
			Presence: map[string]domain.PresenceRecord{
				"staff@example.com": {Email: "staff@example.com", LastActive: time.Now().UTC()},
			},
		},
	}); err != nil {
		t.Fatalf("Patch() error = %v", err)
	}

	got, err := fs.Stores().Get(ctx, "store-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Config.DisplayName != "Renamed Tea" {
		t.Errorf("DisplayName = %q, rename patch lost", got.Config.DisplayName)
	}
	if _, ok := got.Config.Presence["staff@example.com"]; !ok {
		t.Error("presence patch lost after field patch")
	}
	if got.Catalog[0].SalesCount != 2 {
		t.Errorf("SalesCount = %d, untouched field changed", got.Catalog[0].SalesCount)
	}
}

func TestFileStorePatchAbsentStore(t *testing.T) {
	fs := NewFileStore(testPath(t), zerolog.Nop())
	name := "ghost"
	err := fs.Stores().Patch(context.Background(), "missing", domain.StorePatch{
		Config: &domain.ConfigPatch{DisplayName: &name},
	})
	if err != nil {
		t.Errorf("Patch() on absent store = %v, want silent no-op", err)
	}
}

func TestFileStoreGetReturnsCopy(t *testing.T) {
	fs := NewFileStore(testPath(t), zerolog.Nop())
	ctx := context.Background()
	if err := fs.Stores().Create(ctx, sampleStore("store-1")); err != nil {
		t.Fatal(err)
	}

	first, _ := fs.Stores().Get(ctx, "store-1")
	first.Config.DisplayName = "mutated"
	*first.Catalog[0].Price = 99

	second, _ := fs.Stores().Get(ctx, "store-1")
	if second.Config.DisplayName != "Corner Tea" {
		t.Error("caller mutation leaked into registry config")
	}
	if *second.Catalog[0].Price != 4.5 {
		t.Error("caller mutation leaked into registry catalog")
	}
}
