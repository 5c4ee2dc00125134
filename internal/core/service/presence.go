package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopmaster/store-system/internal/core/domain"
	"github.com/shopmaster/store-system/internal/core/ports"
)

const (
	// DefaultHeartbeatInterval is how often an active session refreshes
	// its presence record.
	DefaultHeartbeatInterval = 30 * time.Second
	// DefaultOnlineThreshold is the freshness window for the online
	// predicate.
	DefaultOnlineThreshold = 2 * time.Minute
)

// IsOnline reports whether a presence record is fresh at the given
// instant. The comparison is strict: a record aged exactly threshold is
// offline. This is a pure predicate recomputed on every read; its truth
// value changes with wall-clock time alone and must never be stored.
func IsOnline(rec domain.PresenceRecord, now time.Time, threshold time.Duration) bool {
	return now.Sub(rec.LastActive) < threshold
}

// OnlineInStore looks up email in the store's presence map and applies
// IsOnline. An absent record is offline.
func OnlineInStore(store domain.Store, email string, now time.Time, threshold time.Duration) bool {
	rec, ok := store.Config.Presence[domain.NormalizeEmail(email)]
	if !ok {
		return false
	}
	return IsOnline(rec, now, threshold)
}

// Tracker writes per-member heartbeats into a store's presence map.
// Each write is a keyed merge touching only the member's own email key,
// so concurrent trackers for different members of the same store never
// clobber one another.
type Tracker struct {
	stores   ports.StoreRepository
	interval time.Duration
	log      zerolog.Logger
	nowFn    func() time.Time
}

func NewTracker(stores ports.StoreRepository, interval time.Duration, log zerolog.Logger) *Tracker {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Tracker{
		stores:   stores,
		interval: interval,
		log:      log,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// Heartbeat records a single presence write for the member.
func (t *Tracker) Heartbeat(ctx context.Context, storeID string, rec domain.PresenceRecord, at time.Time) error {
	rec.Email = domain.NormalizeEmail(rec.Email)
	rec.LastActive = at
	return t.stores.Patch(ctx, storeID, domain.StorePatch{
		Config: &domain.ConfigPatch{
			Presence: map[string]domain.PresenceRecord{rec.Email: rec},
		},
	})
}

// Run writes an immediate heartbeat and then repeats on the configured
// interval until ctx is cancelled. Cancellation stops the loop with no
// trailing write, so a session that switches stores or logs out never
// marks presence on a stale store.
func (t *Tracker) Run(ctx context.Context, storeID string, identity domain.Identity, role domain.Role) {
	rec := domain.PresenceRecord{
		Name:  identity.Name,
		Email: identity.Email,
		Role:  role,
	}

	if err := t.Heartbeat(ctx, storeID, rec, t.nowFn()); err != nil {
		t.log.Warn().Err(err).Str("store_id", storeID).Str("email", rec.Email).Msg("presence heartbeat failed")
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if err := t.Heartbeat(ctx, storeID, rec, t.nowFn()); err != nil {
				t.log.Warn().Err(err).Str("store_id", storeID).Str("email", rec.Email).Msg("presence heartbeat failed")
			}
		}
	}
}
