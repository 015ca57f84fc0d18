package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
	"github.com/vasiliy-maslov/shop-service/internal/user"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	Name         string             `bson:"name"`
	PasswordHash string             `bson:"passwordHash"`
	Role         string             `bson:"role"`
	Phone        string             `bson:"phone,omitempty"`
	Address      string             `bson:"address,omitempty"`
	City         string             `bson:"city,omitempty"`
	PostalCode   string             `bson:"postalCode,omitempty"`
	Country      string             `bson:"country,omitempty"`
	IsActive     bool               `bson:"isActive"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d *userDoc) user() *user.User {
	return &user.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		Role:         auth.Role(d.Role),
		Phone:        d.Phone,
		Address:      d.Address,
		City:         d.City,
		PostalCode:   d.PostalCode,
		Country:      d.Country,
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// UserRepository keeps emails lowercased so the unique index on email is
// case-insensitive.
type UserRepository struct {
	coll *mongo.Collection
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Email:        strings.ToLower(u.Email),
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Phone:        u.Phone,
		Address:      u.Address,
		City:         u.City,
		PostalCode:   u.PostalCode,
		Country:      u.Country,
		IsActive:     u.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrEmailExists
		}
		return fmt.Errorf("repository: failed to insert user: %w", err)
	}

	u.ID = doc.ID.Hex()
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, user.ErrNotFound
	}
	return r.getOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) getOne(ctx context.Context, filter bson.M) (*user.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to find user: %w", err)
	}
	return doc.user(), nil
}
