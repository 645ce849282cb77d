package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lookkg/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoUserRepository struct {
	users *mongo.Collection
}

// NewMongoUserRepository creates a UserRepository over the users collection of db
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{users: db.Collection(UsersCollection)}
}

func (r *mongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, err := r.users.InsertOne(ctx, newUserDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *mongoUserRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.FindByID(ctx, id)
}

func (r *mongoUserRepository) FindFirstSeller(ctx context.Context) (*domain.User, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	return r.findOne(ctx, bson.M{"isSeller": true}, opts)
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *mongoUserRepository) Update(ctx context.Context, user *domain.User) error {
	doc := newUserDocument(user)
	update := bson.M{"$set": bson.M{
		"name":               doc.Name,
		"email":              doc.Email,
		"password":           doc.Password,
		"seller.name":        doc.Seller.Name,
		"seller.logo":        doc.Seller.Logo,
		"seller.notLogo":     doc.Seller.NotLogo,
		"seller.description": doc.Seller.Description,
		"seller.instagram":   doc.Seller.Instagram,
		"seller.payMethod":   doc.Seller.PayMethod,
		"updatedAt":          doc.UpdatedAt,
	}}

	result, err := r.users.UpdateByID(ctx, doc.ID, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *mongoUserRepository) UpdateSellerSummary(ctx context.Context, id uuid.UUID, summary domain.RatingSummary) error {
	return r.set(ctx, id, bson.M{
		"seller.rating":     summary.Rating,
		"seller.numReviews": summary.NumReviews,
	})
}

func (r *mongoUserRepository) UpdateSellerLogo(ctx context.Context, id uuid.UUID, logo string) error {
	return r.set(ctx, id, bson.M{"seller.logo": logo})
}

func (r *mongoUserRepository) set(ctx context.Context, id uuid.UUID, fields bson.M) error {
	fields["updatedAt"] = time.Now().UTC()

	result, err := r.users.UpdateByID(ctx, id.String(), bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
