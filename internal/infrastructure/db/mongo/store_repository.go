package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shopmaster/store-system/internal/core/domain"
)

const storesCollection = "stores"

type StoreRepository struct {
	coll *mongo.Collection
}

func NewStoreRepository(db *mongo.Database) *StoreRepository {
	return &StoreRepository{coll: db.Collection(storesCollection)}
}

// Presence is keyed by email and update paths treat "." as a path
// separator, so dots in keys are escaped before they reach mongo.
func escapePresenceKey(email string) string {
	return strings.ReplaceAll(email, ".", "．")
}

func unescapePresenceKey(key string) string {
	return strings.ReplaceAll(key, "．", ".")
}

func encodePresence(in map[string]domain.PresenceRecord) map[string]domain.PresenceRecord {
	if in == nil {
		return nil
	}
	out := make(map[string]domain.PresenceRecord, len(in))
	for k, v := range in {
		out[escapePresenceKey(k)] = v
	}
	return out
}

func decodePresence(in map[string]domain.PresenceRecord) map[string]domain.PresenceRecord {
	out := make(map[string]domain.PresenceRecord, len(in))
	for k, v := range in {
		out[unescapePresenceKey(k)] = v
	}
	return out
}

func (r *StoreRepository) Create(ctx context.Context, store *domain.Store) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	doc := store.Clone()
	doc.Config.Presence = encodePresence(doc.Config.Presence)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

func (r *StoreRepository) Get(ctx context.Context, id string) (*domain.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var store domain.Store
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&store)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, fmt.Errorf("find store: %w", err)
	}
	store.Config.Presence = decodePresence(store.Config.Presence)
	return &store, nil
}

func (r *StoreRepository) List(ctx context.Context) ([]domain.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer cursor.Close(ctx)

	var stores []domain.Store
	if err := cursor.All(ctx, &stores); err != nil {
		return nil, fmt.Errorf("decode stores: %w", err)
	}
	for i := range stores {
		stores[i].Config.Presence = decodePresence(stores[i].Config.Presence)
	}
	return stores, nil
}

// Patch translates a partial update into field-level $set operations,
// so concurrent patches to different fields of the same store document
// never clobber each other. Presence entries set only their own key.
func (r *StoreRepository) Patch(ctx context.Context, id string, patch domain.StorePatch) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	set := bson.M{}
	if cfg := patch.Config; cfg != nil {
		if cfg.DisplayName != nil {
			set["config.display_name"] = *cfg.DisplayName
		}
		if cfg.StaffEmails != nil {
			set["config.staff_emails"] = *cfg.StaffEmails
		}
		if cfg.FamilyEmails != nil {
			set["config.family_emails"] = *cfg.FamilyEmails
		}
		for email, rec := range cfg.Presence {
			set["config.presence."+escapePresenceKey(email)] = rec
		}
	}
	if patch.Catalog != nil {
		set["catalog"] = *patch.Catalog
	}
	if patch.TransactionLog != nil {
		set["transaction_log"] = *patch.TransactionLog
	}
	if patch.Archive != nil {
		set["archive"] = *patch.Archive
	}
	if patch.LastDayEndAt != nil {
		set["last_day_end_at"] = *patch.LastDayEndAt
	}
	if len(set) == 0 {
		return nil
	}

	// A patch against an absent store matches nothing and is a no-op.
	if _, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("patch store: %w", err)
	}
	return nil
}

// EnsureIndexes creates the lookup indexes used by session binding.
func (r *StoreRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}},
		{Keys: bson.D{{Key: "config.owner_email", Value: 1}}},
	}
	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
