package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lookkg/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, name, email, password_hash, is_admin, is_seller,
	seller_name, seller_logo, seller_logo_data, seller_description, seller_instagram,
	seller_pay_method, seller_rating, seller_num_reviews, created_at, updated_at`

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a PostgreSQL backed UserRepository
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var payMethod []byte
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.IsSeller,
		&user.Seller.Name,
		&user.Seller.Logo,
		&user.Seller.LogoData,
		&user.Seller.Description,
		&user.Seller.Instagram.Username,
		&payMethod,
		&user.Seller.Rating,
		&user.Seller.NumReviews,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(payMethod) > 0 {
		if err := json.Unmarshal(payMethod, &user.Seller.PayMethod); err != nil {
			return nil, fmt.Errorf("failed to decode seller pay methods: %w", err)
		}
	}

	return user, nil
}

// Create inserts a new user
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	payMethod, err := json.Marshal(user.Seller.PayMethod)
	if err != nil {
		return fmt.Errorf("failed to encode seller pay methods: %w", err)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = conn(ctx, r.db).ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		user.IsSeller,
		user.Seller.Name,
		user.Seller.Logo,
		user.Seller.LogoData,
		user.Seller.Description,
		user.Seller.Instagram.Username,
		string(payMethod),
		user.Seller.Rating,
		user.Seller.NumReviews,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// FindByEmail retrieves a user by email
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByID retrieves a user by ID
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByIDForUpdate retrieves a user and locks its row for the rest of the transaction
func (r *userRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if inTx(ctx) {
		query += ` FOR UPDATE`
	}
	return r.findOne(ctx, query, id)
}

// FindFirstSeller retrieves the earliest registered seller
func (r *userRepository) FindFirstSeller(ctx context.Context) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_seller ORDER BY created_at ASC, id ASC LIMIT 1`
	return r.findOne(ctx, query)
}

func (r *userRepository) findOne(ctx context.Context, query string, args ...interface{}) (*domain.User, error) {
	user, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// Update stores the profile fields of an existing user
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	payMethod, err := json.Marshal(user.Seller.PayMethod)
	if err != nil {
		return fmt.Errorf("failed to encode seller pay methods: %w", err)
	}

	query := `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, seller_name = $5, seller_logo = $6,
		    seller_logo_data = $7, seller_description = $8, seller_instagram = $9,
		    seller_pay_method = $10, updated_at = $11
		WHERE id = $1
	`

	result, err := conn(ctx, r.db).ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Seller.Name,
		user.Seller.Logo,
		user.Seller.LogoData,
		user.Seller.Description,
		user.Seller.Instagram.Username,
		string(payMethod),
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return expectOneUser(result)
}

// UpdateSellerSummary stores a recomputed seller aggregate
func (r *userRepository) UpdateSellerSummary(ctx context.Context, id uuid.UUID, summary domain.RatingSummary) error {
	result, err := conn(ctx, r.db).ExecContext(
		ctx,
		`UPDATE users SET seller_rating = $2, seller_num_reviews = $3, updated_at = $4 WHERE id = $1`,
		id,
		summary.Rating,
		summary.NumReviews,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update seller rating: %w", err)
	}

	return expectOneUser(result)
}

// UpdateSellerLogo stores the public URL of the seller's logo
func (r *userRepository) UpdateSellerLogo(ctx context.Context, id uuid.UUID, logo string) error {
	result, err := conn(ctx, r.db).ExecContext(
		ctx,
		`UPDATE users SET seller_logo = $2, updated_at = $3 WHERE id = $1`,
		id,
		logo,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update seller logo: %w", err)
	}

	return expectOneUser(result)
}

func expectOneUser(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
