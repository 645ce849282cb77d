package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lookkg/internal/domain"
	"lookkg/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for bcrypt hashing
const BcryptCost = 10

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims represents the JWT claims. The keys match what the auth middleware reads.
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	IsAdmin  bool      `json:"is_admin"`
	IsSeller bool      `json:"is_seller"`
	jwt.RegisteredClaims
}

// AuthResult is a user together with a freshly issued token
type AuthResult struct {
	User  *domain.User
	Token string
}

// ProfileUpdate holds the editable fields of a user profile. Empty strings
// leave the current value, in Seller as well; Seller is only applied to sellers.
type ProfileUpdate struct {
	Name     string
	Email    string
	Password string
	Seller   *domain.SellerProfile
}

// UserService defines the interface for user business logic
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*AuthResult, error)
	Signin(ctx context.Context, email, password string) (*AuthResult, error)
	Seed(ctx context.Context) ([]*domain.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*AuthResult, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type userService struct {
	userRepo    repository.UserRepository
	jwtSecret   string
	tokenExpiry time.Duration
	logger      *zap.Logger
}

// NewUserService creates a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	jwtSecret string,
	tokenExpiry time.Duration,
	logger *zap.Logger,
) UserService {
	return &userService{
		userRepo:    userRepo,
		jwtSecret:   jwtSecret,
		tokenExpiry: tokenExpiry,
		logger:      logger,
	}
}

// Register creates a new buyer account with hashed password and signs it in
func (s *userService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	existingUser, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, repository.ErrUserAlreadyExists
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issue(user)
}

// Signin authenticates a user and returns a JWT
func (s *userService) Signin(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Seed creates the sample accounts that own the sample catalog. Accounts that
// already exist are returned unchanged.
func (s *userService) Seed(ctx context.Context) ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(seedUsers))

	for _, seed := range seedUsers {
		existing, err := s.userRepo.FindByEmail(ctx, seed.Email)
		if err == nil {
			users = append(users, existing)
			continue
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to check seed user: %w", err)
		}

		hashedPassword, err := s.hashPassword(seed.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}

		now := time.Now().UTC()
		user := &domain.User{
			ID:           uuid.New(),
			Name:         seed.Name,
			Email:        seed.Email,
			PasswordHash: hashedPassword,
			IsAdmin:      seed.IsAdmin,
			IsSeller:     seed.IsSeller,
			Seller:       seed.Seller,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create seed user: %w", err)
		}
		users = append(users, user)
	}

	s.logger.Info("Seeded users", zap.Int("count", len(users)))

	return users, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies update and reissues the token so its claims reflect the new profile
func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*AuthResult, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if update.Name != "" {
		user.Name = update.Name
	}
	if update.Email != "" {
		user.Email = update.Email
	}
	if update.Password != "" {
		hashedPassword, err := s.hashPassword(update.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hashedPassword
	}
	if user.IsSeller && update.Seller != nil {
		user.Seller = mergeSellerProfile(user.Seller, *update.Seller)
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return s.issue(user)
}

// mergeSellerProfile overlays the non-empty fields of update on current. The
// rating aggregate is owned by the review flow and always kept.
func mergeSellerProfile(current, update domain.SellerProfile) domain.SellerProfile {
	merged := current
	merged.Name = orCurrent(update.Name, current.Name)
	merged.Logo = orCurrent(update.Logo, current.Logo)
	merged.Description = orCurrent(update.Description, current.Description)
	merged.Instagram.Username = orCurrent(update.Instagram.Username, current.Instagram.Username)
	if len(update.LogoData) > 0 {
		merged.LogoData = update.LogoData
	}

	merged.PayMethod = domain.PayMethods{
		VisaCard:  orCurrent(update.PayMethod.VisaCard, current.PayMethod.VisaCard),
		Elsom:     orCurrent(update.PayMethod.Elsom, current.PayMethod.Elsom),
		OMoney:    orCurrent(update.PayMethod.OMoney, current.PayMethod.OMoney),
		BalanceKg: orCurrent(update.PayMethod.BalanceKg, current.PayMethod.BalanceKg),
		MBank:     orCurrent(update.PayMethod.MBank, current.PayMethod.MBank),
	}
	return merged
}

func orCurrent(value, current string) string {
	if value == "" {
		return current
	}
	return value
}

// ValidateToken validates a JWT token and returns the claims
func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *userService) issue(user *domain.User) (*AuthResult, error) {
	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// hashPassword hashes a password using bcrypt
func (s *userService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// verifyPassword verifies a password against a bcrypt hash
func (s *userService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// generateToken signs an HS256 token carrying the user's identity and roles
func (s *userService) generateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Name:     user.Name,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
		IsSeller: user.IsSeller,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
