package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shopmaster/store-system/internal/core/domain"
	"github.com/shopmaster/store-system/internal/core/ports"
)

// DedupChecker abstracts the checkout idempotency store (Redis). A nil
// checker disables replay protection.
type DedupChecker interface {
	IsDuplicate(ctx context.Context, sessionID, key string) (bool, error)
	Mark(ctx context.Context, sessionID, key string) error
}

// Manager owns the live sessions of this process and routes freshly
// authenticated identities per the selection policy.
type Manager struct {
	identities ports.IdentityRepository
	stores     ports.StoreRepository
	brands     ports.BrandProvider
	tracker    ports.PresenceWriter
	dedup      DedupChecker
	log        zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	nowFn    func() time.Time
}

func NewManager(
	identities ports.IdentityRepository,
	stores ports.StoreRepository,
	brands ports.BrandProvider,
	tracker ports.PresenceWriter,
	dedup DedupChecker,
	log zerolog.Logger,
) *Manager {
	return &Manager{
		identities: identities,
		stores:     stores,
		brands:     brands,
		tracker:    tracker,
		dedup:      dedup,
		log:        log,
		sessions:   make(map[string]*Session),
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

// Begin creates a session for an authenticated identity and applies the
// selection policy: a single accessible store is auto-bound, several
// defer to an explicit choice, none routes to provisioning (owners) or
// a waiting state (everyone else).
func (m *Manager) Begin(ctx context.Context, identity domain.Identity) (ports.Session, error) {
	all, err := m.stores.List(ctx)
	if err != nil {
		return nil, err
	}
	accessible := AccessibleStores(identity.Email, all, identity.Role)

	s := &Session{
		id:       uuid.NewString(),
		mgr:      m,
		identity: identity,
		role:     identity.Role,
		state:    domain.StateLoggedOut,
	}

	next := RouteFor(identity, len(accessible))
	if next == domain.StateActive {
		s.bind(accessible[0].Store)
	} else {
		s.transition(next)
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.log.Info().
		Str("session_id", s.id).
		Str("email", identity.Email).
		Str("state", string(s.State())).
		Int("accessible_stores", len(accessible)).
		Msg("session started")

	return s, nil
}

// Get returns the live session for id.
func (m *Manager) Get(id string) (ports.Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// End logs the session out and discards it. Unknown ids are ignored.
func (m *Manager) End(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.logout()
	m.log.Info().Str("session_id", id).Str("email", s.Identity().Email).Msg("session ended")
}

// Session is one device session. A mutex serializes external triggers
// (HTTP requests) against each other; each runs to completion before
// the next is accepted.
type Session struct {
	id  string
	mgr *Manager

	mu            sync.Mutex
	identity      domain.Identity
	role          domain.Role
	state         domain.SessionState
	activeStoreID string
	cart          []domain.CartLine
	stopPresence  context.CancelFunc
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Identity() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Session) Role() domain.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *Session) ActiveStoreID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeStoreID
}

// transition moves the state machine, guarded by the domain transition
// table.
func (s *Session) transition(next domain.SessionState) bool {
	if !s.state.CanTransitionTo(next) {
		s.mgr.log.Warn().
			Str("session_id", s.id).
			Str("from", string(s.state)).
			Str("to", string(next)).
			Msg("invalid session transition rejected")
		return false
	}
	s.state = next
	return true
}

// bind makes the store active: recomputes the role, transitions to
// Active, and starts the presence heartbeat. Caller holds no lock on
// entry only during Begin; all other callers hold s.mu.
func (s *Session) bind(store domain.Store) {
	s.role = EffectiveRole(s.identity.Email, store.Config, s.identity.Role)
	if !s.transition(domain.StateActive) {
		return
	}
	s.activeStoreID = store.ID

	// The heartbeat outlives any single request, so it runs on its own
	// context, cancelled on every exit path from Active.
	ctx, cancel := context.WithCancel(context.Background())
	s.stopPresence = cancel
	go s.mgr.tracker.Run(ctx, store.ID, s.identity, s.role)
}

// unbind cancels the heartbeat and discards the cart.
func (s *Session) unbind() {
	if s.stopPresence != nil {
		s.stopPresence()
		s.stopPresence = nil
	}
	s.activeStoreID = ""
	s.cart = nil
}

func (s *Session) logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unbind()
	s.state = domain.StateLoggedOut
}

// AccessibleStores recomputes the identity's store list against the
// latest registry snapshot.
func (s *Session) AccessibleStores(ctx context.Context) ([]ports.StoreAccess, error) {
	all, err := s.mgr.stores.List(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	email, fallback := s.identity.Email, s.identity.Role
	s.mu.Unlock()
	return AccessibleStores(email, all, fallback), nil
}

// Select binds an explicitly chosen store. Valid from the selection
// state and from Active (switching directly between stores).
func (s *Session) Select(ctx context.Context, storeID string) error {
	store, err := s.mgr.stores.Get(ctx, storeID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateSelectingStore && s.state != domain.StateActive {
		return domain.ErrForbidden
	}
	if !store.Config.HasMember(s.identity.Email) {
		return domain.ErrForbidden
	}

	s.unbind()
	if s.state == domain.StateActive {
		s.transition(domain.StateSelectingStore)
	}
	s.bind(*store)
	return nil
}

// Provision creates a new store owned by this identity, seeds its
// catalog from the brand template, and binds it. Only reachable from
// the provisioning state; the identity's role is forced to owner.
func (s *Session) Provision(ctx context.Context, in ports.ProvisionInput) (*domain.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateProvisioning {
		return nil, domain.ErrForbidden
	}

	var catalog []domain.CatalogItem
	if brand, ok := s.mgr.brands.Lookup(in.BrandID); ok {
		catalog = append(catalog, brand.DefaultCatalog...)
	}

	store := &domain.Store{
		ID: uuid.NewString(),
		Config: domain.StoreConfig{
			DisplayName:  in.DisplayName,
			BrandID:      in.BrandID,
			Country:      in.Country,
			Provisioned:  true,
			OwnerEmail:   s.identity.Email,
			StaffEmails:  []string{},
			FamilyEmails: []string{},
			Presence:     map[string]domain.PresenceRecord{},
		},
		Catalog:        catalog,
		TransactionLog: []domain.Sale{},
		Archive:        []domain.DaySummary{},
	}

	if err := s.mgr.stores.Create(ctx, store); err != nil {
		return nil, err
	}

	s.identity.Role = domain.RoleOwner
	s.bind(*store)

	s.mgr.log.Info().
		Str("session_id", s.id).
		Str("store_id", store.ID).
		Str("brand_id", in.BrandID).
		Msg("store provisioned")

	snapshot := store.Clone()
	return &snapshot, nil
}

// SwitchStore returns an active session to the selection state. The
// identity is retained; the heartbeat stops and the cart is discarded.
func (s *Session) SwitchStore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateActive {
		return
	}
	s.unbind()
	s.transition(domain.StateSelectingStore)
}

// ActiveStore returns the latest snapshot of the bound store.
func (s *Session) ActiveStore(ctx context.Context) (*domain.Store, error) {
	s.mu.Lock()
	id := s.activeStoreID
	s.mu.Unlock()
	if id == "" {
		return nil, domain.ErrStoreNotFound
	}
	return s.mgr.stores.Get(ctx, id)
}

func (s *Session) Cart() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartLine(nil), s.cart...)
}

// AddToCart snapshots a priced catalog item into the cart. Unpriced
// items, unknown items, and sessions with no bound store are silent
// no-ops.
func (s *Session) AddToCart(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateActive {
		return nil
	}

	store, err := s.mgr.stores.Get(ctx, s.activeStoreID)
	if err != nil {
		return err
	}

	for _, item := range store.Catalog {
		if item.ID != itemID {
			continue
		}
		if item.Price == nil {
			return nil
		}
		for i := range s.cart {
			if s.cart[i].Item.ID == itemID {
				s.cart[i].Quantity += quantity
				return nil
			}
		}
		s.cart = append(s.cart, domain.CartLine{Item: item, Quantity: quantity})
		return nil
	}
	return nil
}

func (s *Session) RemoveFromCart(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.cart[:0]
	for _, line := range s.cart {
		if line.Item.ID != itemID {
			kept = append(kept, line)
		}
	}
	s.cart = kept
}

func (s *Session) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
}

// Checkout turns every cart line into one Sale, appends them to the
// transaction log, bumps the matching items' sales counts, and empties
// the cart. An empty cart or unbound store yields a zero result. When
// an idempotency key is supplied and already seen, the checkout is
// replayed without side effects.
func (s *Session) Checkout(ctx context.Context, idempotencyKey string) (*ports.CheckoutResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateActive || len(s.cart) == 0 {
		return &ports.CheckoutResult{}, nil
	}

	if idempotencyKey != "" && s.mgr.dedup != nil {
		dup, err := s.mgr.dedup.IsDuplicate(ctx, s.id, idempotencyKey)
		if err != nil {
			s.mgr.log.Warn().Err(err).Str("session_id", s.id).Msg("checkout dedup check failed, processing anyway")
		} else if dup {
			s.mgr.log.Info().Str("session_id", s.id).Str("idempotency_key", idempotencyKey).Msg("idempotent checkout replay")
			return &ports.CheckoutResult{Replayed: true}, nil
		}
	}

	store, err := s.mgr.stores.Get(ctx, s.activeStoreID)
	if err != nil {
		return nil, err
	}

	now := s.mgr.nowFn()
	quantities := make(map[string]int, len(s.cart))
	sales := make([]domain.Sale, 0, len(s.cart))
	total := 0.0
	for _, line := range s.cart {
		amount := 0.0
		if line.Item.Price != nil {
			amount = *line.Item.Price * float64(line.Quantity)
		}
		sales = append(sales, domain.Sale{
			ID:        uuid.NewString(),
			ItemID:    line.Item.ID,
			ItemName:  line.Item.Name,
			Amount:    amount,
			Timestamp: now,
		})
		quantities[line.Item.ID] += line.Quantity
		total += amount
	}

	catalog := store.Catalog
	for i := range catalog {
		if qty, ok := quantities[catalog[i].ID]; ok {
			catalog[i].SalesCount += qty
		}
	}
	log := append(store.TransactionLog, sales...)

	if err := s.mgr.stores.Patch(ctx, s.activeStoreID, domain.StorePatch{
		Catalog:        &catalog,
		TransactionLog: &log,
	}); err != nil {
		return nil, err
	}

	if idempotencyKey != "" && s.mgr.dedup != nil {
		if err := s.mgr.dedup.Mark(ctx, s.id, idempotencyKey); err != nil {
			s.mgr.log.Warn().Err(err).Str("session_id", s.id).Msg("failed to mark checkout idempotency key")
		}
	}

	s.cart = nil

	s.mgr.log.Info().
		Str("session_id", s.id).
		Str("store_id", s.activeStoreID).
		Int("sales", len(sales)).
		Float64("total", total).
		Msg("checkout completed")

	return &ports.CheckoutResult{Sales: sales, Total: total}, nil
}

// SetPrice prices a catalog item. Any member of the store may price
// items.
func (s *Session) SetPrice(ctx context.Context, itemID string, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateActive {
		return nil
	}

	store, err := s.mgr.stores.Get(ctx, s.activeStoreID)
	if err != nil {
		return err
	}

	catalog := store.Catalog
	found := false
	for i := range catalog {
		if catalog[i].ID == itemID {
			p := price
			catalog[i].Price = &p
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	return s.mgr.stores.Patch(ctx, s.activeStoreID, domain.StorePatch{Catalog: &catalog})
}

// AddCatalogItem prepends a new unpriced item. Owner-only.
func (s *Session) AddCatalogItem(ctx context.Context, in ports.AddItemInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateActive || s.role != domain.RoleOwner {
		return nil
	}

	store, err := s.mgr.stores.Get(ctx, s.activeStoreID)
	if err != nil {
		return err
	}

	catalog := append([]domain.CatalogItem{{
		ID:       uuid.NewString(),
		Name:     in.Name,
		Category: in.Category,
		ImageRef: in.ImageRef,
	}}, store.Catalog...)

	return s.mgr.stores.Patch(ctx, s.activeStoreID, domain.StorePatch{Catalog: &catalog})
}

// EndDay archives the transaction log into a single DaySummary,
// prepended to the archive (most recent first). The log is the sole
// archival boundary: it empties entirely or not at all. An empty log is
// a silent no-op.
func (s *Session) EndDay(ctx context.Context) (*domain.DaySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateActive {
		return nil, nil
	}

	store, err := s.mgr.stores.Get(ctx, s.activeStoreID)
	if err != nil {
		return nil, err
	}
	if len(store.TransactionLog) == 0 {
		return nil, nil
	}

	now := s.mgr.nowFn()
	total := 0.0
	for _, sale := range store.TransactionLog {
		total += sale.Amount
	}
	summary := domain.DaySummary{
		ID:           uuid.NewString(),
		Date:         now,
		TotalRevenue: total,
		TotalSales:   len(store.TransactionLog),
	}

	archive := append([]domain.DaySummary{summary}, store.Archive...)
	emptyLog := []domain.Sale{}

	if err := s.mgr.stores.Patch(ctx, s.activeStoreID, domain.StorePatch{
		TransactionLog: &emptyLog,
		Archive:        &archive,
		LastDayEndAt:   &now,
	}); err != nil {
		return nil, err
	}

	s.mgr.log.Info().
		Str("session_id", s.id).
		Str("store_id", s.activeStoreID).
		Float64("total_revenue", total).
		Int("total_sales", summary.TotalSales).
		Msg("day ended")

	return &summary, nil
}

// UpdateMembership replaces one membership list with normalized,
// deduplicated emails. Owner-only.
func (s *Session) UpdateMembership(ctx context.Context, kind ports.MemberKind, emails []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateActive || s.role != domain.RoleOwner {
		return nil
	}

	normalized := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = domain.NormalizeEmail(e)
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		normalized = append(normalized, e)
	}

	patch := &domain.ConfigPatch{}
	switch kind {
	case ports.MemberKindStaff:
		patch.StaffEmails = &normalized
	case ports.MemberKindFamily:
		patch.FamilyEmails = &normalized
	default:
		return nil
	}

	return s.mgr.stores.Patch(ctx, s.activeStoreID, domain.StorePatch{Config: patch})
}

// UpdateProfile patches the authenticated identity's profile fields.
func (s *Session) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.Identity, error) {
	s.mu.Lock()
	email := s.identity.Email
	s.mu.Unlock()

	updated, err := s.mgr.identities.UpdateProfile(ctx, email, patch)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.identity.PhotoRef = updated.PhotoRef
	s.identity.DisplayCurrency = updated.DisplayCurrency
	sanitized := s.identity
	s.mu.Unlock()

	return &sanitized, nil
}
