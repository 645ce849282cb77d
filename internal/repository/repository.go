package repository

import (
	"context"
	"errors"

	"lookkg/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this email already exists")
	ErrDuplicateReview   = errors.New("product already reviewed by this user")
)

// SortKey selects the listing order
type SortKey string

const (
	SortNewest    SortKey = ""
	SortPriceAsc  SortKey = "lowest"
	SortPriceDesc SortKey = "highest"
	SortTopRated  SortKey = "toprated"
)

// ParseSortKey maps the public order parameter to a SortKey; unknown values sort newest first
func ParseSortKey(order string) SortKey {
	switch SortKey(order) {
	case SortPriceAsc, SortPriceDesc, SortTopRated:
		return SortKey(order)
	default:
		return SortNewest
	}
}

// ProductFilter narrows a catalog listing. Zero values mean "no filter".
type ProductFilter struct {
	Name      string
	Category  string
	SellerID  *uuid.UUID
	MinPrice  float64
	MaxPrice  float64
	MinRating float64
	Sort      SortKey
}

// PriceRangeActive reports whether the price bounds apply. Both ends must be
// set and non-zero; a lone minimum or maximum leaves prices unfiltered.
func (f ProductFilter) PriceRangeActive() bool {
	return f.MinPrice != 0 && f.MaxPrice != 0
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// FindByIDForUpdate loads the product and, inside a transaction, holds it
	// against concurrent review and delete writers until commit.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// FindDetail loads the product with its seller's detail card populated.
	FindDetail(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// List returns one page of matching products with seller listing cards populated.
	List(ctx context.Context, filter ProductFilter, offset, limit int) ([]*domain.Product, error)
	Count(ctx context.Context, filter ProductFilter) (int, error)
	// AddReview appends review and stores the product's recomputed aggregate.
	AddReview(ctx context.Context, productID uuid.UUID, review domain.Review, summary domain.RatingSummary) error
}

// CategoryRepository lists the categories in use across the catalog
type CategoryRepository interface {
	List(ctx context.Context) ([]string, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// FindByIDForUpdate loads the user and, inside a transaction, holds it
	// until commit so seller aggregates are recomputed from a stable value.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindFirstSeller(ctx context.Context) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdateSellerSummary(ctx context.Context, id uuid.UUID, summary domain.RatingSummary) error
	UpdateSellerLogo(ctx context.Context, id uuid.UUID, logo string) error
}

// Transactor runs fn so that every repository call made with the context it
// receives commits or rolls back together. Nested calls join the outer unit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
