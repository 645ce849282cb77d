package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"lookkg/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoProductRepository struct {
	products *mongo.Collection
	users    *mongo.Collection
}

// NewMongoProductRepository creates a ProductRepository over the products collection of db
func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{
		products: db.Collection(ProductsCollection),
		users:    db.Collection(UsersCollection),
	}
}

func (r *mongoProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if _, err := r.products.InsertOne(ctx, newProductDocument(product)); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *mongoProductRepository) Update(ctx context.Context, product *domain.Product) error {
	update := bson.M{"$set": bson.M{
		"name":         product.Name,
		"image":        product.Image,
		"price":        product.Price,
		"category":     product.Category,
		"brand":        product.Brand,
		"countInStock": product.CountInStock,
		"rating":       product.Rating,
		"numReviews":   product.NumReviews,
		"description":  product.Description,
		"updatedAt":    product.UpdatedAt,
	}}

	result, err := r.products.UpdateByID(ctx, product.ID.String(), update)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *mongoProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.products.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *mongoProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var doc productDocument
	err := r.products.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return doc.toDomain(), nil
}

// FindByIDForUpdate reads the product inside the session bound to ctx.
// MongoDB has no row locks; concurrent writers inside transactions surface as
// write conflicts and the transaction is retried.
func (r *mongoProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *mongoProductRepository) FindDetail(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var seller userDocument
	err = r.users.FindOne(ctx, bson.M{"_id": product.SellerID.String()}).Decode(&seller)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return product, nil
	case err != nil:
		return nil, fmt.Errorf("failed to find product seller: %w", err)
	}

	product.Seller.Seller = seller.toDomain().DetailCard()
	return product, nil
}

func (r *mongoProductRepository) List(ctx context.Context, filter ProductFilter, offset, limit int) ([]*domain.Product, error) {
	opts := options.Find().
		SetSort(mongoProductSort(filter.Sort)).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.products.Find(ctx, mongoProductFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	var docs []productDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]*domain.Product, 0, len(docs))
	sellerIDs := make([]string, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.toDomain())
		sellerIDs = append(sellerIDs, doc.Seller)
	}

	if len(sellerIDs) == 0 {
		return products, nil
	}

	cards, err := r.listingCards(ctx, sellerIDs)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if card, ok := cards[p.SellerID]; ok {
			p.Seller.Seller = card
		}
	}

	return products, nil
}

// listingCards loads the seller listing cards for ids in one query
func (r *mongoProductRepository) listingCards(ctx context.Context, ids []string) (map[uuid.UUID]*domain.SellerCard, error) {
	opts := options.Find().SetProjection(bson.M{"seller.name": 1, "seller.logo": 1})

	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find product sellers: %w", err)
	}

	var docs []userDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode product sellers: %w", err)
	}

	cards := make(map[uuid.UUID]*domain.SellerCard, len(docs))
	for _, doc := range docs {
		cards[parseID(doc.ID)] = doc.toDomain().ListingCard()
	}
	return cards, nil
}

func (r *mongoProductRepository) Count(ctx context.Context, filter ProductFilter) (int, error) {
	total, err := r.products.CountDocuments(ctx, mongoProductFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return int(total), nil
}

// AddReview pushes review onto the product. Outside a transaction the push is
// guarded by the reviewer id so two concurrent reviews from one user cannot both land.
func (r *mongoProductRepository) AddReview(ctx context.Context, productID uuid.UUID, review domain.Review, summary domain.RatingSummary) error {
	filter := bson.M{"_id": productID.String()}
	if review.ReviewerID != uuid.Nil {
		filter["reviews.user"] = bson.M{"$ne": review.ReviewerID.String()}
	}

	update := bson.M{
		"$push": bson.M{"reviews": newReviewDocument(review)},
		"$set": bson.M{
			"rating":     summary.Rating,
			"numReviews": summary.NumReviews,
			"updatedAt":  review.CreatedAt,
		},
	}

	result, err := r.products.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to add review: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	exists, err := r.products.CountDocuments(ctx, bson.M{"_id": productID.String()})
	if err != nil {
		return fmt.Errorf("failed to check product: %w", err)
	}
	if exists == 0 {
		return ErrProductNotFound
	}
	return ErrDuplicateReview
}

func mongoProductFilter(filter ProductFilter) bson.M {
	query := bson.M{}

	if filter.Name != "" {
		query["name"] = bson.M{"$regex": regexp.QuoteMeta(filter.Name), "$options": "i"}
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.SellerID != nil {
		query["seller"] = filter.SellerID.String()
	}
	if filter.PriceRangeActive() {
		query["price"] = bson.M{"$gte": filter.MinPrice, "$lte": filter.MaxPrice}
	}
	if filter.MinRating != 0 {
		query["rating"] = bson.M{"$gte": filter.MinRating}
	}

	return query
}

func mongoProductSort(key SortKey) bson.D {
	tail := bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	switch key {
	case SortPriceAsc:
		return append(bson.D{{Key: "price", Value: 1}}, tail...)
	case SortPriceDesc:
		return append(bson.D{{Key: "price", Value: -1}}, tail...)
	case SortTopRated:
		return append(bson.D{{Key: "rating", Value: -1}}, tail...)
	default:
		return tail
	}
}

type mongoCategoryRepository struct {
	products *mongo.Collection
}

// NewMongoCategoryRepository creates a CategoryRepository over the products collection of db
func NewMongoCategoryRepository(db *mongo.Database) CategoryRepository {
	return &mongoCategoryRepository{products: db.Collection(ProductsCollection)}
}

func (r *mongoCategoryRepository) List(ctx context.Context) ([]string, error) {
	values, err := r.products.Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			categories = append(categories, s)
		}
	}
	sort.Strings(categories)

	return categories, nil
}
