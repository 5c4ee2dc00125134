package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopmaster/store-system/internal/core/domain"
	"github.com/shopmaster/store-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubIdentityRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.Identity
}

func newStubIdentityRepo() *stubIdentityRepo {
	return &stubIdentityRepo{byEmail: make(map[string]*domain.Identity)}
}

func cloneIdentity(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}

func (r *stubIdentityRepo) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byEmail[email]; ok {
		return cloneIdentity(i), nil
	}
	return nil, domain.ErrIdentityNotFound
}

func (r *stubIdentityRepo) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[identity.Email]; exists {
		return nil, domain.ErrIdentityExists
	}
	r.byEmail[identity.Email] = cloneIdentity(identity)
	return cloneIdentity(identity), nil
}

func (r *stubIdentityRepo) UpdateProfile(_ context.Context, email string, patch domain.ProfilePatch) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	if patch.PhotoRef != nil {
		i.PhotoRef = *patch.PhotoRef
	}
	if patch.DisplayCurrency != nil {
		i.DisplayCurrency = *patch.DisplayCurrency
	}
	return cloneIdentity(i), nil
}

type stubStoreRepo struct {
	mu      sync.Mutex
	stores  map[string]*domain.Store
	patches int
}

func newStubStoreRepo() *stubStoreRepo {
	return &stubStoreRepo{stores: make(map[string]*domain.Store)}
}

func (r *stubStoreRepo) Create(_ context.Context, store *domain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := store.Clone()
	r.stores[store.ID] = &clone
	return nil
}

func (r *stubStoreRepo) Get(_ context.Context, id string) (*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[id]
	if !ok {
		return nil, domain.ErrStoreNotFound
	}
	clone := s.Clone()
	return &clone, nil
}

func (r *stubStoreRepo) List(_ context.Context) ([]domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Store, 0, len(r.stores))
	for _, s := range r.stores {
		out = append(out, s.Clone())
	}
	return out, nil
}

func (r *stubStoreRepo) Patch(_ context.Context, id string, patch domain.StorePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patches++
	if s, ok := r.stores[id]; ok {
		s.Apply(patch)
	}
	return nil
}

type stubBrands struct{}

func (stubBrands) Lookup(id string) (ports.Brand, bool) {
	if id != "teashop" {
		return ports.Brand{}, false
	}
	return ports.Brand{
		ID:   "teashop",
		Name: "Tea Shop",
		DefaultCatalog: []domain.CatalogItem{
			{ID: "t-1", Name: "Masala Chai", Category: "Tea"},
			{ID: "t-2", Name: "Green Tea", Category: "Tea"},
		},
	}, true
}

type stubDedup struct {
	dupResult bool
	dupErr    error
	marked    []string
}

func (d *stubDedup) IsDuplicate(_ context.Context, sessionID, key string) (bool, error) {
	return d.dupResult, d.dupErr
}

func (d *stubDedup) Mark(_ context.Context, sessionID, key string) error {
	d.marked = append(d.marked, sessionID+":"+key)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func priceOf(v float64) *float64 { return &v }

func newTestManager(identities *stubIdentityRepo, stores *stubStoreRepo, dedup DedupChecker) *Manager {
	tracker := NewTracker(stores, 10*time.Millisecond, zerolog.Nop())
	return NewManager(identities, stores, stubBrands{}, tracker, dedup, zerolog.Nop())
}

func seededStore(id, ownerEmail string) *domain.Store {
	return &domain.Store{
		ID: id,
		Config: domain.StoreConfig{
			DisplayName:  "Corner Cafe",
			BrandID:      "teashop",
			Country:      "United States",
			Provisioned:  true,
			OwnerEmail:   ownerEmail,
			StaffEmails:  []string{},
			FamilyEmails: []string{},
			Presence:     map[string]domain.PresenceRecord{},
		},
		Catalog: []domain.CatalogItem{
			{ID: "item-1", Name: "Latte", Category: "Coffee", Price: priceOf(10)},
			{ID: "item-2", Name: "Muffin", Category: "Bakery", Price: priceOf(5)},
			{ID: "item-3", Name: "Mystery Special", Category: "Food"}, // unpriced
		},
		TransactionLog: []domain.Sale{},
		Archive:        []domain.DaySummary{},
	}
}

func owner(email string) domain.Identity {
	return domain.Identity{ID: "id-" + email, Name: "Owner", Email: email, Role: domain.RoleOwner}
}

func activeSession(t *testing.T, m *Manager, identity domain.Identity) *Session {
	t.Helper()
	s, err := m.Begin(context.Background(), identity)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if s.State() != domain.StateActive {
		t.Fatalf("expected active session, got %s", s.State())
	}
	return s.(*Session)
}

// ---------------------------------------------------------------------------
// Selection routing
// ---------------------------------------------------------------------------

func TestBegin_AutoBindsSingleStore(t *testing.T) {
	stores := newStubStoreRepo()
	_ = stores.Create(context.Background(), seededStore("st-1", "a@x.com"))
	m := newTestManager(newStubIdentityRepo(), stores, nil)

	// b signed up with the staff default role but derives staff from the list.
	_ = stores.Patch(context.Background(), "st-1", domain.StorePatch{
		Config: &domain.ConfigPatch{StaffEmails: &[]string{"b@x.com"}},
	})

	s, err := m.Begin(context.Background(), domain.Identity{Email: "b@x.com", Name: "B", Role: domain.RoleFamily})
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	defer m.End(s.ID())

	if s.State() != domain.StateActive {
		t.Fatalf("expected Active, got %s", s.State())
	}
	if s.ActiveStoreID() != "st-1" {
		t.Fatalf("expected st-1 bound, got %q", s.ActiveStoreID())
	}
	if s.Role() != domain.RoleStaff {
		t.Fatalf("expected computed staff role, got %s", s.Role())
	}
}

func TestBegin_RoutesOwnerToProvisioning(t *testing.T) {
	m := newTestManager(newStubIdentityRepo(), newStubStoreRepo(), nil)

	s, err := m.Begin(context.Background(), owner("new@x.com"))
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if s.State() != domain.StateProvisioning {
		t.Fatalf("expected Provisioning, got %s", s.State())
	}
}

func TestBegin_RoutesNonOwnerToAwaitingAccess(t *testing.T) {
	m := newTestManager(newStubIdentityRepo(), newStubStoreRepo(), nil)

	s, err := m.Begin(context.Background(), domain.Identity{Email: "s@x.com", Role: domain.RoleStaff})
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if s.State() != domain.StateAwaitingAccess {
		t.Fatalf("expected AwaitingAccess, got %s", s.State())
	}
}

func TestBegin_DefersSelectionAmongMany(t *testing.T) {
	stores := newStubStoreRepo()
	_ = stores.Create(context.Background(), seededStore("st-1", "a@x.com"))
	second := seededStore("st-2", "a@x.com")
	_ = stores.Create(context.Background(), second)
	m := newTestManager(newStubIdentityRepo(), stores, nil)

	s, err := m.Begin(context.Background(), owner("a@x.com"))
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if s.State() != domain.StateSelectingStore {
		t.Fatalf("expected SelectingStore, got %s", s.State())
	}
	if s.ActiveStoreID() != "" {
		t.Fatalf("no store should be bound before explicit choice")
	}

	if err := s.Select(context.Background(), "st-2"); err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if s.State() != domain.StateActive || s.ActiveStoreID() != "st-2" {
		t.Fatalf("expected st-2 active, got %s %q", s.State(), s.ActiveStoreID())
	}
	m.End(s.ID())
}

func TestSelect_ForbidsNonMember(t *testing.T) {
	stores := newStubStoreRepo()
	_ = stores.Create(context.Background(), seededStore("st-1", "a@x.com"))
	_ = stores.Create(context.Background(), seededStore("st-2", "other@x.com"))
	m := newTestManager(newStubIdentityRepo(), stores, nil)

	s, _ := m.Begin(context.Background(), owner("a@x.com"))
	defer m.End(s.ID())

	if err := s.Select(context.Background(), "st-2"); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Provisioning
// ---------------------------------------------------------------------------

func TestProvision_SeedsCatalogAndBinds(t *testing.T) {
	stores := newStubStoreRepo()
	m := newTestManager(newStubIdentityRepo(), stores, nil)

	s, _ := m.Begin(context.Background(), domain.Identity{Email: "a@x.com", Name: "A", Role: domain.RoleOwner})
	defer m.End(s.ID())

	store, err := s.Provision(context.Background(), ports.ProvisionInput{
		DisplayName: "Corner Cafe",
		BrandID:     "teashop",
		Country:     "India",
	})
	if err != nil {
		t.Fatalf("Provision returned error: %v", err)
	}
	if s.State() != domain.StateActive {
		t.Fatalf("expected Active after provisioning, got %s", s.State())
	}
	if s.Role() != domain.RoleOwner {
		t.Fatalf("role must be forced to owner, got %s", s.Role())
	}
	if store.Config.OwnerEmail != "a@x.com" {
		t.Fatalf("owner email not recorded: %q", store.Config.OwnerEmail)
	}
	if !store.Config.Provisioned {
		t.Fatalf("store must be marked provisioned")
	}
	if len(store.Catalog) != 2 {
		t.Fatalf("expected 2 seeded items, got %d", len(store.Catalog))
	}

	// Unknown brand seeds an empty catalog.
	s2, _ := m.Begin(context.Background(), domain.Identity{Email: "z@x.com", Role: domain.RoleOwner})
	store2, err := s2.Provision(context.Background(), ports.ProvisionInput{DisplayName: "Z", BrandID: "nope", Country: "Japan"})
	if err != nil {
		t.Fatalf("Provision returned error: %v", err)
	}
	if len(store2.Catalog) != 0 {
		t.Fatalf("unknown brand should seed no items, got %d", len(store2.Catalog))
	}
	m.End(s2.ID())
}

func TestProvision_RejectedOutsideProvisioningState(t *testing.T) {
	stores := newStubStoreRepo()
	_ = stores.Create(context.Background(), seededStore("st-1", "a@x.com"))
	m := newTestManager(newStubIdentityRepo(), stores, nil)

	s := activeSession(t, m, owner("a@x.com"))
	defer m.End(s.ID())

	if _, err := s.Provision(context.Background(), ports.ProvisionInput{DisplayName: "X"}); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Cart and checkout
// ---------------------------------------------------------------------------

func TestAddToCart_RejectsUnpricedItem(t *testing.T) {
	stores := newStubStoreRepo()
	_ = stores.Create(context.Background(), seededStore("st-1", "a@x.com"))
	m := newTestManager(newStubIdentityRepo(), stores, nil)

	s := activeSession(t, m, owner("a@x.com"))
	defer m.End(s.ID())

	if err := s.AddToCart(context.Background(), "item-3", 1); err != nil {
		t.Fatalf("AddToCart returned error: %v", err)
	}
	if len(s.Cart()) != 0 {
		t.Fatalf("unpriced item must not enter the cart")
	}

	_ = s.AddToCart(context.Background(), "item-1", 1)
	_ = s.AddToCart(context.Background(), "item-1", 1)
	cart := s.Cart()
	if len(cart) != 1 || cart[0].Quantity != 2 {
		t.Fatalf("repeated adds should merge into one line, got %+v", cart)
	}
}

func TestCheckout_TotalsAndIdempotence(t *testing.T) {
	stores := newStubStoreRepo()
	_ = stores.Create(context.Background(), seededStore("st-1", "a@x.com"))
	m := newTestManager(newStubIdentityRepo(), stores, nil)

	s := activeSession(t, m, owner("a@x.com"))
	defer m.End(s.ID())

	_ = s.AddToCart(context.Background(), "item-1", 2) // 10 × 2
	_ = s.AddToCart(context.Background(), "item-2", 1) // 5 × 1

	result, err := s.Checkout(context.Background(), "")
	if err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}
	if len(result.Sales) != 2 {
		t.Fatalf("expected 2 sales, got %d", len(result.Sales))
	}
	if result.Sales[0].Amount != 20 || result.Sales[1].Amount != 5 {
		t.Fatalf("unexpected amounts: %v %v", result.Sales[0].Amount, result.Sales[1].Amount)
	}
	if result.Total != 25 {
		t.Fatalf("expected total 25, got %v", result.Total)
	}
	if len(s.Cart()) != 0 {
		t.Fatalf("cart must be empty after checkout")
	}

	store, _ := stores.Get(context.Background(), "st-1")
	if len(store.TransactionLog) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(store.TransactionLog))
	}
	if store.Catalog[0].SalesCount != 2 || store.Catalog[1].SalesCount != 1 {
		t.Fatalf("sales counts not incremented: %d %d", store.Catalog[0].SalesCount, store.Catalog[1].SalesCount)
	}

	// Second checkout with an empty cart is a no-op.
	again, err := s.Checkout(context.Background(), "")
	if err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}
	if len(again.Sales) != 0 {
		t.Fatalf("empty-cart checkout must record nothing")
	}
	after, _ := stores.Get(context.Background(), "st-1")
	if len(after.TransactionLog) != 2 {
		t.Fatalf("transaction log changed by no-op checkout")
	}
}

func TestCheckout_IdempotencyKeyReplay(t *testing.T) {
	stores := newStubStoreRepo()
	_ = stores.Create(context.Background(), seededStore("st-1", "a@x.com"))
	dedup := &stubDedup{dupResult: true}
	m := newTestManager(newStubIdentityRepo(), stores, dedup)

	s := activeSession(t, m, owner("a@x.com"))
	defer m.End(s.ID())

	_ = s.AddToCart(context.Background(), "item-1", 1)
	result, err := s.Checkout(context.Background(), "key-1")
	if err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}
	if !result.Replayed {
		t.Fatalf("expected replayed result")
	}

	store, _ := stores.Get(context.Background(), "st-1")
	if len(store.TransactionLog) != 0 {
		t.Fatalf("replayed checkout must not append sales")
	}
}

func TestCheckout_MarksIdempotencyKey(t *testing.T) {
	stores := newStubStoreRepo()
	_ = stores.Create(context.Background(), seededStore("st-1", "a@x.com"))
	dedup := &stubDedup{}
	m := newTestManager(newStubIdentityRepo(), stores, dedup)

	s := activeSession(t, m, owner("a@x.com"))
	defer m.End(s.ID())

	_ = s.AddToCart(context.Background(), "item-1", 1)
	if _, err := s.Checkout(context.Background(), "key-1"); err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}
	if len(dedup.marked) != 1 {
		t.Fatalf("expected 1 marked key, got %d", len(dedup.marked))
	}
}

// ---------------------------------------------------------------------------
// Day-end archival
// ---------------------------------------------------------------------------

func TestEndDay_Conservation(t *testing.T) {
	stores := newStubStoreRepo()
	st := seededStore("st-1", "a@x.com")
	st.Archive = []domain.DaySummary{{ID: "old", TotalRevenue: 99, TotalSales: 9}}
	_ = stores.Create(context.Background(), st)
	m := newTestManager(newStubIdentityRepo(), stores, nil)

	s := activeSession(t, m, owner("a@x.com"))
	defer m.End(s.ID())

	_ = s.AddToCart(context.Background(), "item-1", 2)
	_ = s.AddToCart(context.Background(), "item-2", 1)
	_, _ = s.Checkout(context.Background(), "")

	summary, err := s.EndDay(context.Background())
	if err != nil {
		t.Fatalf("EndDay returned error: %v", err)
	}
	if summary == nil {
		t.Fatalf("expected a summary")
	}
	if summary.TotalRevenue != 25 || summary.TotalSales != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	store, _ := stores.Get(context.Background(), "st-1")
	if len(store.TransactionLog) != 0 {
		t.Fatalf("transaction log must be emptied")
	}
	if len(store.Archive) != 2 {
		t.Fatalf("expected 2 archive entries, got %d", len(store.Archive))
	}
	if store.Archive[0].ID != summary.ID {
		t.Fatalf("new summary must be prepended")
	}
	if store.Archive[1].ID != "old" || store.Archive[1].TotalRevenue != 99 {
		t.Fatalf("existing archive entry disturbed: %+v", store.Archive[1])
	}
	if store.LastDayEndAt.IsZero() {
		t.Fatalf("last day-end timestamp not set")
	}

	// Empty log: silent no-op.
	before, _ := stores.Get(context.Background(), "st-1")
	summary, err = s.EndDay(context.Background())
	if err != nil || summary != nil {
		t.Fatalf("expected silent no-op, got %+v %v", summary, err)
	}
	after, _ := stores.Get(context.Background(), "st-1")
	if len(after.Archive) != len(before.Archive) {
		t.Fatalf("no-op day-end changed the archive")
	}
}

// ---------------------------------------------------------------------------
// Silent no-ops and authorization
// ---------------------------------------------------------------------------

func TestMutations_NoOpWithoutBoundStore(t *testing.T) {
	stores := newStubStoreRepo()
	m := newTestManager(newStubIdentityRepo(), stores, nil)

	s, _ := m.Begin(context.Background(), owner("a@x.com")) // provisioning state
	defer m.End(s.ID())

	if err := s.SetPrice(context.Background(), "item-1", 3); err != nil {
		t.Fatalf("SetPrice must be a silent no-op: %v", err)
	}
	if err := s.AddToCart(context.Background(), "item-1", 1); err != nil {
		t.Fatalf("AddToCart must be a silent no-op: %v", err)
	}
	result, err := s.Checkout(context.Background(), "")
	if err != nil || len(result.Sales) != 0 {
		t.Fatalf("Checkout must be a silent no-op: %+v %v", result, err)
	}
	summary, err := s.EndDay(context.Background())
	if err != nil || summary != nil {
		t.Fatalf("EndDay must be a silent no-op: %+v %v", summary, err)
	}
	if stores.patches != 0 {
		t.Fatalf("no patches may reach the registry, got %d", stores.patches)
	}
}

func TestOwnerOnlyMutations_NoOpForStaff(t *testing.T) {
	stores := newStubStoreRepo()
	st := seededStore("st-1", "a@x.com")
	st.Config.StaffEmails = []string{"b@x.com"}
	_ = stores.Create(context.Background(), st)
	m := newTestManager(newStubIdentityRepo(), stores, nil)

	s := activeSession(t, m, domain.Identity{Email: "b@x.com", Name: "B", Role: domain.RoleStaff})
	defer m.End(s.ID())

	before, _ := stores.Get(context.Background(), "st-1")
	if err := s.AddCatalogItem(context.Background(), ports.AddItemInput{Name: "Pie"}); err != nil {
		t.Fatalf("AddCatalogItem must be silent for staff: %v", err)
	}
	if err := s.UpdateMembership(context.Background(), ports.MemberKindStaff, []string{"c@x.com"}); err != nil {
		t.Fatalf("UpdateMembership must be silent for staff: %v", err)
	}
	after, _ := stores.Get(context.Background(), "st-1")
	if len(after.Catalog) != len(before.Catalog) {
		t.Fatalf("staff must not add catalog items")
	}
	if len(after.Config.StaffEmails) != 1 || after.Config.StaffEmails[0] != "b@x.com" {
		t.Fatalf("staff must not edit membership: %+v", after.Config.StaffEmails)
	}
}

func TestUpdateMembership_NormalizesAndPreservesPresence(t *testing.T) {
	stores := newStubStoreRepo()
	st := seededStore("st-1", "a@x.com")
	st.Config.Presence = map[string]domain.PresenceRecord{
		"b@x.com": {Name: "B", Email: "b@x.com", Role: domain.RoleStaff},
	}
	st.Config.FamilyEmails = []string{"f@x.com"}
	_ = stores.Create(context.Background(), st)
	m := newTestManager(newStubIdentityRepo(), stores, nil)

	s := activeSession(t, m, owner("a@x.com"))
	defer m.End(s.ID())

	err := s.UpdateMembership(context.Background(), ports.MemberKindStaff, []string{" B@X.com ", "b@x.com", "c@x.com", ""})
	if err != nil {
		t.Fatalf("UpdateMembership returned error: %v", err)
	}

	store, _ := stores.Get(context.Background(), "st-1")
	if len(store.Config.StaffEmails) != 2 || store.Config.StaffEmails[0] != "b@x.com" || store.Config.StaffEmails[1] != "c@x.com" {
		t.Fatalf("emails not normalized/deduplicated: %+v", store.Config.StaffEmails)
	}
	if _, ok := store.Config.Presence["b@x.com"]; !ok {
		t.Fatalf("membership edit clobbered the presence map")
	}
	if len(store.Config.FamilyEmails) != 1 {
		t.Fatalf("membership edit clobbered the family list")
	}
}

// ---------------------------------------------------------------------------
// Switch / logout lifecycle
// ---------------------------------------------------------------------------

func TestSwitchStore_StopsHeartbeatAndDiscardsCart(t *testing.T) {
	stores := newStubStoreRepo()
	_ = stores.Create(context.Background(), seededStore("st-1", "a@x.com"))
	m := newTestManager(newStubIdentityRepo(), stores, nil)

	s := activeSession(t, m, owner("a@x.com"))
	defer m.End(s.ID())

	_ = s.AddToCart(context.Background(), "item-1", 1)
	s.SwitchStore()

	if s.State() != domain.StateSelectingStore {
		t.Fatalf("expected SelectingStore, got %s", s.State())
	}
	if s.ActiveStoreID() != "" {
		t.Fatalf("store binding must be cleared")
	}
	if len(s.Cart()) != 0 {
		t.Fatalf("cart must be discarded on switch")
	}

	// Wait past a few heartbeat intervals, then confirm presence stops moving.
	time.Sleep(50 * time.Millisecond)
	st1, _ := stores.Get(context.Background(), "st-1")
	stamp := st1.Config.Presence["a@x.com"].LastActive
	time.Sleep(50 * time.Millisecond)
	st2, _ := stores.Get(context.Background(), "st-1")
	if !st2.Config.Presence["a@x.com"].LastActive.Equal(stamp) {
		t.Fatalf("heartbeat kept writing after switch")
	}
}

// stubPresenceWriter stands in for the tracker so binding can be
// observed through the port alone.
type stubPresenceWriter struct {
	mu      sync.Mutex
	started []string
}

func (w *stubPresenceWriter) Heartbeat(context.Context, string, domain.PresenceRecord, time.Time) error {
	return nil
}

func (w *stubPresenceWriter) Run(ctx context.Context, storeID string, identity domain.Identity, _ domain.Role) {
	w.mu.Lock()
	w.started = append(w.started, storeID+":"+identity.Email)
	w.mu.Unlock()
	<-ctx.Done()
}

func TestBind_StartsPresenceThroughWriter(t *testing.T) {
	stores := newStubStoreRepo()
	_ = stores.Create(context.Background(), seededStore("st-1", "a@x.com"))
	writer := &stubPresenceWriter{}
	m := NewManager(newStubIdentityRepo(), stores, stubBrands{}, writer, nil, zerolog.Nop())

	s := activeSession(t, m, owner("a@x.com"))
	defer m.End(s.ID())

	deadline := time.Now().Add(time.Second)
	for {
		writer.mu.Lock()
		n := len(writer.started)
		writer.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("presence writer never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	writer.mu.Lock()
	got := writer.started[0]
	writer.mu.Unlock()
	if got != "st-1:a@x.com" {
		t.Fatalf("unexpected presence start: %s", got)
	}
}

func TestEnd_TearsDownSession(t *testing.T) {
	stores := newStubStoreRepo()
	_ = stores.Create(context.Background(), seededStore("st-1", "a@x.com"))
	m := newTestManager(newStubIdentityRepo(), stores, nil)

	s := activeSession(t, m, owner("a@x.com"))
	id := s.ID()
	m.End(id)

	if _, err := m.Get(id); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if s.State() != domain.StateLoggedOut {
		t.Fatalf("expected LoggedOut, got %s", s.State())
	}
}

// ---------------------------------------------------------------------------
// Patch isolation
// ---------------------------------------------------------------------------

func TestPatchIsolation_AcrossStores(t *testing.T) {
	stores := newStubStoreRepo()
	_ = stores.Create(context.Background(), seededStore("st-1", "a@x.com"))
	other := seededStore("st-2", "other@y.com")
	other.Config.Presence = map[string]domain.PresenceRecord{
		"other@y.com": {Name: "O", Email: "other@y.com", Role: domain.RoleOwner},
	}
	_ = stores.Create(context.Background(), other)

	_ = stores.Patch(context.Background(), "st-1", domain.StorePatch{
		Config: &domain.ConfigPatch{StaffEmails: &[]string{"b@x.com"}},
	})

	st2, _ := stores.Get(context.Background(), "st-2")
	if len(st2.Config.StaffEmails) != 0 {
		t.Fatalf("patch leaked into another store")
	}
	if len(st2.Config.Presence) != 1 {
		t.Fatalf("patch disturbed another store's presence map")
	}

	st1, _ := stores.Get(context.Background(), "st-1")
	if st1.Config.OwnerEmail != "a@x.com" || len(st1.Config.FamilyEmails) != 0 {
		t.Fatalf("unrelated config fields changed: %+v", st1.Config)
	}
}

// ---------------------------------------------------------------------------
// End-to-end scenario
// ---------------------------------------------------------------------------

func TestEndToEnd_OwnerProvisionsStaffSells(t *testing.T) {
	ctx := context.Background()
	identities := newStubIdentityRepo()
	stores := newStubStoreRepo()
	m := newTestManager(identities, stores, nil)

	// Owner registers and provisions.
	auth := NewAuthService(identities, "secret", time.Hour)
	ownerID, err := auth.Register(ctx, "Asha", "A@X.com", "pw", domain.RoleOwner)
	if err != nil {
		t.Fatalf("register owner: %v", err)
	}
	ownerSession, _ := m.Begin(ctx, *ownerID)
	store, err := ownerSession.Provision(ctx, ports.ProvisionInput{
		DisplayName: "Corner Cafe",
		BrandID:     "teashop",
		Country:     "United States",
	})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	// Owner prices an item and admits staff.
	if err := ownerSession.SetPrice(ctx, "t-1", 3.5); err != nil {
		t.Fatalf("set price: %v", err)
	}
	if err := ownerSession.UpdateMembership(ctx, ports.MemberKindStaff, []string{"b@x.com"}); err != nil {
		t.Fatalf("update membership: %v", err)
	}
	m.End(ownerSession.ID())

	// Staff registers with an unknown default role, logs in, and is
	// auto-bound with the computed staff role.
	staffID, err := auth.Register(ctx, "Bo", "b@x.com", "pw2", domain.RoleFamily)
	if err != nil {
		t.Fatalf("register staff: %v", err)
	}
	staffSession, err := m.Begin(ctx, *staffID)
	if err != nil {
		t.Fatalf("staff login: %v", err)
	}
	if staffSession.State() != domain.StateActive || staffSession.Role() != domain.RoleStaff {
		t.Fatalf("staff routing failed: %s %s", staffSession.State(), staffSession.Role())
	}

	// Staff sells 2 × $3.50.
	if err := staffSession.AddToCart(ctx, "t-1", 2); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	result, err := staffSession.Checkout(ctx, "")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if len(result.Sales) != 1 || result.Sales[0].Amount != 7.0 {
		t.Fatalf("expected one sale of 7.00, got %+v", result.Sales)
	}
	m.End(staffSession.ID())

	// Owner returns and closes the day.
	ownerAgain, _ := auth.Login(ctx, "a@x.com", "pw")
	ownerSession2, _ := m.Begin(ctx, *ownerAgain)
	if ownerSession2.Role() != domain.RoleOwner {
		t.Fatalf("owner role not derived on re-login: %s", ownerSession2.Role())
	}
	summary, err := ownerSession2.EndDay(ctx)
	if err != nil {
		t.Fatalf("end day: %v", err)
	}
	if summary.TotalRevenue != 7.0 || summary.TotalSales != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	final, _ := stores.Get(ctx, store.ID)
	if len(final.TransactionLog) != 0 || len(final.Archive) != 1 {
		t.Fatalf("archival state wrong: log=%d archive=%d", len(final.TransactionLog), len(final.Archive))
	}
	m.End(ownerSession2.ID())
}
