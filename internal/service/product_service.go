package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lookkg/internal/domain"
	"lookkg/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PageSize is the fixed number of products per listing page
const PageSize = 4

var (
	ErrNoSeller      = errors.New("no seller found, first run /api/users/seed")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// ProductPage is one page of a catalog listing
type ProductPage struct {
	Products []*domain.Product `json:"products"`
	Page     int               `json:"page"`
	Pages    int               `json:"pages"`
}

// ReviewInput is a review submitted by an authenticated user
type ReviewInput struct {
	ReviewerID uuid.UUID
	Name       string
	Rating     int
	Comment    string
}

// ReviewResult is the stored review and the seller after its aggregate was updated.
// Seller is nil when the product's seller no longer exists.
type ReviewResult struct {
	Review domain.Review
	Seller *domain.User
}

// ImageCleaner deletes remote images asynchronously
type ImageCleaner interface {
	Schedule(imageURL string)
}

// ProductService defines the interface for catalog business logic
type ProductService interface {
	List(ctx context.Context, filter repository.ProductFilter, page int) (*ProductPage, error)
	Categories(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Create(ctx context.Context, sellerID uuid.UUID) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, details domain.ProductDetails) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	AddReview(ctx context.Context, productID uuid.UUID, input ReviewInput) (*ReviewResult, error)
	Seed(ctx context.Context) ([]*domain.Product, error)
}

type productService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	tx         repository.Transactor
	cleaner    ImageCleaner
	logger     *zap.Logger
	now        func() time.Time
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	users repository.UserRepository,
	tx repository.Transactor,
	cleaner ImageCleaner,
	logger *zap.Logger,
) ProductService {
	return &productService{
		products:   products,
		categories: categories,
		users:      users,
		tx:         tx,
		cleaner:    cleaner,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// List returns the requested page of products matching filter. Pages below 1 are treated as 1.
func (s *productService) List(ctx context.Context, filter repository.ProductFilter, page int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}

	var (
		total    int
		products []*domain.Product
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.products.Count(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.products.List(gctx, filter, PageSize*(page-1), PageSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ProductPage{
		Products: products,
		Page:     page,
		Pages:    PageCount(total),
	}, nil
}

// PageCount is the number of PageSize pages needed for total items
func PageCount(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}

func (s *productService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Get returns a product with its seller's detail card
func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// Create stores a placeholder product owned by sellerID
func (s *productService) Create(ctx context.Context, sellerID uuid.UUID) (*domain.Product, error) {
	product := domain.NewPlaceholderProduct(sellerID, s.now())

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("seller_id", sellerID.String()),
	)

	return product, nil
}

// Update overwrites the catalog fields of a product. Reviews and aggregates are untouched.
func (s *productService) Update(ctx context.Context, id uuid.UUID, details domain.ProductDetails) (*domain.Product, error) {
	var product *domain.Product

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		product, err = s.products.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		product.Apply(details, s.now())
		return s.products.Update(ctx, product)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// Delete removes a product and takes its reviews out of the seller's
// aggregate. The product is returned as it was before deletion.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var product *domain.Product

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		product, err = s.products.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		seller, err := s.users.FindByIDForUpdate(ctx, product.SellerID)
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			s.logger.Warn("Deleting product whose seller no longer exists",
				zap.String("product_id", id.String()),
				zap.String("seller_id", product.SellerID.String()),
			)
		case err != nil:
			return err
		default:
			summary := seller.SellerSummary().Remove(product.ReviewRatingSum(), product.NumReviews)
			if err := s.users.UpdateSellerSummary(ctx, seller.ID, summary); err != nil {
				return err
			}
		}

		return s.products.Delete(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}

	if product.HostedImage() {
		s.cleaner.Schedule(product.Image)
	}

	s.logger.Info("Product deleted", zap.String("product_id", id.String()))

	return product, nil
}

// AddReview appends a review and folds it into both the product and the seller aggregates
func (s *productService) AddReview(ctx context.Context, productID uuid.UUID, input ReviewInput) (*ReviewResult, error) {
	if input.Rating < domain.MinReviewRating || input.Rating > domain.MaxReviewRating {
		return nil, ErrInvalidRating
	}

	result := &ReviewResult{}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		product, err := s.products.FindByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		if product.HasReviewFrom(input.ReviewerID, input.Name) {
			return repository.ErrDuplicateReview
		}

		review := domain.NewReview(input.ReviewerID, input.Name, input.Rating, input.Comment, s.now())
		product.AddReview(review)
		if err := s.products.AddReview(ctx, productID, review, product.ReviewSummary()); err != nil {
			return err
		}
		result.Review = review

		seller, err := s.users.FindByIDForUpdate(ctx, product.SellerID)
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("Reviewed product has no seller",
				zap.String("product_id", productID.String()),
				zap.String("seller_id", product.SellerID.String()),
			)
			return nil
		}
		if err != nil {
			return err
		}

		seller.SetSellerSummary(seller.SellerSummary().Add(input.Rating))
		if err := s.users.UpdateSellerSummary(ctx, seller.ID, seller.SellerSummary()); err != nil {
			return err
		}
		result.Seller = seller

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add review: %w", err)
	}

	return result, nil
}

// Seed inserts the sample catalog, owned by the first seller
func (s *productService) Seed(ctx context.Context) ([]*domain.Product, error) {
	seller, err := s.users.FindFirstSeller(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNoSeller
		}
		return nil, fmt.Errorf("failed to find seller: %w", err)
	}

	now := s.now()
	created := make([]*domain.Product, 0, len(seedProducts))

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for i, details := range seedProducts {
			product := domain.NewPlaceholderProduct(seller.ID, now.Add(time.Duration(i)*time.Millisecond))
			product.Apply(details, product.CreatedAt)
			if err := s.products.Create(ctx, product); err != nil {
				return err
			}
			created = append(created, product)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seed products: %w", err)
	}

	s.logger.Info("Seeded products",
		zap.Int("count", len(created)),
		zap.String("seller_id", seller.ID.String()),
	)

	return created, nil
}
