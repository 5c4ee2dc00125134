package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shopmaster/store-system/internal/core/domain"
)

const accountsCollection = "accounts"

type IdentityRepository struct {
	coll *mongo.Collection
}

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{coll: db.Collection(accountsCollection)}
}

type accountDoc struct {
	ID              string    `bson:"_id"`
	Name            string    `bson:"name"`
	Email           string    `bson:"email"`
	SecretHash      string    `bson:"secret_hash"`
	PhotoRef        string    `bson:"photo_ref,omitempty"`
	Role            string    `bson:"role"`
	DisplayCurrency string    `bson:"display_currency,omitempty"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func (d accountDoc) toDomain() *domain.Identity {
	return &domain.Identity{
		ID:              d.ID,
		Name:            d.Name,
		Email:           d.Email,
		SecretHash:      d.SecretHash,
		PhotoRef:        d.PhotoRef,
		Role:            domain.Role(d.Role),
		DisplayCurrency: d.DisplayCurrency,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc accountDoc
	err := r.coll.FindOne(ctx, bson.M{"email": domain.NormalizeEmail(email)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	doc := accountDoc{
		ID:              identity.ID,
		Name:            identity.Name,
		Email:           domain.NormalizeEmail(identity.Email),
		SecretHash:      identity.SecretHash,
		PhotoRef:        identity.PhotoRef,
		Role:            string(identity.Role),
		DisplayCurrency: identity.DisplayCurrency,
		CreatedAt:       identity.CreatedAt,
		UpdatedAt:       identity.UpdatedAt,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrIdentityExists
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) UpdateProfile(ctx context.Context, email string, patch domain.ProfilePatch) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.PhotoRef != nil {
		set["photo_ref"] = *patch.PhotoRef
	}
	if patch.DisplayCurrency != nil {
		set["display_currency"] = *patch.DisplayCurrency
	}

	var doc accountDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"email": domain.NormalizeEmail(email)},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes creates the unique email index the duplicate check
// relies on.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
