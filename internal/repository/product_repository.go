package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lookkg/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const productColumns = `p.id, p.name, p.image, p.price, p.category, p.brand, p.count_in_stock,
	p.rating, p.num_reviews, p.description, p.seller_id, p.created_at, p.updated_at`

// PostgreSQL SQLSTATE codes mapped to repository errors
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a PostgreSQL backed ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner, extra ...interface{}) (*domain.Product, error) {
	product := &domain.Product{}
	dest := []interface{}{
		&product.ID,
		&product.Name,
		&product.Image,
		&product.Price,
		&product.Category,
		&product.Brand,
		&product.CountInStock,
		&product.Rating,
		&product.NumReviews,
		&product.Description,
		&product.SellerID,
		&product.CreatedAt,
		&product.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	product.Seller = &domain.SellerRef{ID: product.SellerID}
	product.Reviews = []domain.Review{}
	return product, nil
}

// Create inserts a new product
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, image, price, category, brand, count_in_stock,
			rating, num_reviews, description, seller_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := conn(ctx, r.db).ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Image,
		product.Price,
		product.Category,
		product.Brand,
		product.CountInStock,
		product.Rating,
		product.NumReviews,
		product.Description,
		product.SellerID,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	for _, review := range product.Reviews {
		if err := r.insertReview(ctx, product.ID, review); err != nil {
			return err
		}
	}

	return nil
}

// Update stores the catalog fields and aggregate of an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, image = $3, price = $4, category = $5, brand = $6,
		    count_in_stock = $7, rating = $8, num_reviews = $9, description = $10,
		    updated_at = $11
		WHERE id = $1
	`

	result, err := conn(ctx, r.db).ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Image,
		product.Price,
		product.Category,
		product.Brand,
		product.CountInStock,
		product.Rating,
		product.NumReviews,
		product.Description,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product; its reviews go with it through the foreign key cascade
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product and its reviews
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.findOne(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id)
}

// FindByIDForUpdate retrieves a product and locks its row for the rest of the transaction
func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`
	if inTx(ctx) {
		query += ` FOR UPDATE`
	}
	return r.findOne(ctx, query, id)
}

func (r *productRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*domain.Product, error) {
	product, err := scanProduct(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	if product.Reviews, err = r.reviews(ctx, product.ID); err != nil {
		return nil, err
	}

	return product, nil
}

// FindDetail retrieves a product with the seller fields needed on the product page
func (r *productRepository) FindDetail(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `,
			u.id IS NOT NULL,
			COALESCE(u.seller_name, ''), COALESCE(u.seller_logo, ''),
			COALESCE(u.seller_rating, 0), COALESCE(u.seller_num_reviews, 0),
			COALESCE(u.seller_pay_method, '{}'::jsonb)
		FROM products p
		LEFT JOIN users u ON u.id = p.seller_id
		WHERE p.id = $1
	`

	var (
		hasSeller bool
		seller    domain.User
		payMethod []byte
	)
	product, err := scanProduct(
		conn(ctx, r.db).QueryRowContext(ctx, query, id),
		&hasSeller,
		&seller.Seller.Name,
		&seller.Seller.Logo,
		&seller.Seller.Rating,
		&seller.Seller.NumReviews,
		&payMethod,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product detail: %w", err)
	}

	if hasSeller {
		if err := json.Unmarshal(payMethod, &seller.Seller.PayMethod); err != nil {
			return nil, fmt.Errorf("failed to decode seller pay methods: %w", err)
		}
		product.Seller.Seller = seller.DetailCard()
	}

	if product.Reviews, err = r.reviews(ctx, product.ID); err != nil {
		return nil, err
	}

	return product, nil
}

// List retrieves one page of products matching filter, newest first unless sorted otherwise
func (r *productRepository) List(ctx context.Context, filter ProductFilter, offset, limit int) ([]*domain.Product, error) {
	where, args := productWhere(filter)

	query := fmt.Sprintf(`
		SELECT %s,
			u.id IS NOT NULL, COALESCE(u.seller_name, ''), COALESCE(u.seller_logo, '')
		FROM products p
		LEFT JOIN users u ON u.id = p.seller_id
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, productColumns, where, productOrderBy(filter.Sort), len(args)+1, len(args)+2)

	args = append(args, limit, offset)

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		var (
			hasSeller bool
			seller    domain.User
		)
		product, err := scanProduct(rows, &hasSeller, &seller.Seller.Name, &seller.Seller.Logo)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if hasSeller {
			product.Seller.Seller = seller.ListingCard()
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	rows.Close()

	// Reviews are loaded after the page rows are closed so the same
	// connection can be reused inside a transaction.
	for _, product := range products {
		if product.Reviews, err = r.reviews(ctx, product.ID); err != nil {
			return nil, err
		}
	}

	return products, nil
}

// Count returns the number of products matching filter
func (r *productRepository) Count(ctx context.Context, filter ProductFilter) (int, error) {
	where, args := productWhere(filter)

	var total int
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM products p `+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}

	return total, nil
}

// AddReview inserts review and stores the product's new aggregate
func (r *productRepository) AddReview(ctx context.Context, productID uuid.UUID, review domain.Review, summary domain.RatingSummary) error {
	if err := r.insertReview(ctx, productID, review); err != nil {
		return err
	}

	result, err := conn(ctx, r.db).ExecContext(
		ctx,
		`UPDATE products SET rating = $2, num_reviews = $3, updated_at = $4 WHERE id = $1`,
		productID,
		summary.Rating,
		summary.NumReviews,
		review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update product rating: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (r *productRepository) insertReview(ctx context.Context, productID uuid.UUID, review domain.Review) error {
	query := `
		INSERT INTO product_reviews (id, product_id, reviewer_id, name, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	reviewerID := uuid.NullUUID{UUID: review.ReviewerID, Valid: review.ReviewerID != uuid.Nil}

	_, err := conn(ctx, r.db).ExecContext(
		ctx,
		query,
		review.ID,
		productID,
		reviewerID,
		review.Name,
		review.Rating,
		review.Comment,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case uniqueViolation:
				return ErrDuplicateReview
			case foreignKeyViolation:
				return ErrProductNotFound
			}
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

func (r *productRepository) reviews(ctx context.Context, productID uuid.UUID) ([]domain.Review, error) {
	query := `
		SELECT id, reviewer_id, name, rating, comment, created_at, updated_at
		FROM product_reviews
		WHERE product_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var (
			review     domain.Review
			reviewerID uuid.NullUUID
		)
		if err := rows.Scan(
			&review.ID,
			&reviewerID,
			&review.Name,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
			&review.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		review.ReviewerID = reviewerID.UUID
		reviews = append(reviews, review)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}

// productWhere builds a parameterized WHERE clause for filter
func productWhere(filter ProductFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)

	add := func(condition string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.Name != "" {
		add("p.name ILIKE $%d", "%"+escapeLike(filter.Name)+"%")
	}
	if filter.Category != "" {
		add("p.category = $%d", filter.Category)
	}
	if filter.SellerID != nil {
		add("p.seller_id = $%d", *filter.SellerID)
	}
	if filter.PriceRangeActive() {
		add("p.price >= $%d", filter.MinPrice)
		add("p.price <= $%d", filter.MaxPrice)
	}
	if filter.MinRating != 0 {
		add("p.rating >= $%d", filter.MinRating)
	}

	if len(conditions) == 0 {
		return "", args
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// productOrderBy maps a sort key to a fixed ORDER BY clause; ids break ties
// so offset pagination is stable
func productOrderBy(sort SortKey) string {
	switch sort {
	case SortPriceAsc:
		return "p.price ASC, p.created_at DESC, p.id DESC"
	case SortPriceDesc:
		return "p.price DESC, p.created_at DESC, p.id DESC"
	case SortTopRated:
		return "p.rating DESC, p.created_at DESC, p.id DESC"
	default:
		return "p.created_at DESC, p.id DESC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
