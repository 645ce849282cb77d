package transport

import (
	"context"
	"io"

	"lookkg/internal/domain"
	"lookkg/internal/repository"
	"lookkg/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockProductService struct {
	mock.Mock
}

func (m *mockProductService) List(ctx context.Context, filter repository.ProductFilter, page int) (*service.ProductPage, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProductPage), args.Error(1)
}

func (m *mockProductService) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockProductService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductService) Create(ctx context.Context, sellerID uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductService) Update(ctx context.Context, id uuid.UUID, details domain.ProductDetails) (*domain.Product, error) {
	args := m.Called(ctx, id, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductService) Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductService) AddReview(ctx context.Context, productID uuid.UUID, input service.ReviewInput) (*service.ReviewResult, error) {
	args := m.Called(ctx, productID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReviewResult), args.Error(1)
}

func (m *mockProductService) Seed(ctx context.Context) ([]*domain.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) Register(ctx context.Context, name, email, password string) (*service.AuthResult, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *mockUserService) Signin(ctx context.Context, email, password string) (*service.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *mockUserService) Seed(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *mockUserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID uuid.UUID, update service.ProfileUpdate) (*service.AuthResult, error) {
	args := m.Called(ctx, userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *mockUserService) ValidateToken(tokenString string) (*service.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Claims), args.Error(1)
}

type mockUploadService struct {
	mock.Mock
}

func (m *mockUploadService) Upload(ctx context.Context, file io.ReadSeeker, meta service.FileMeta) (string, error) {
	args := m.Called(ctx, file, meta)
	return args.String(0), args.Error(1)
}

func (m *mockUploadService) UploadLogo(ctx context.Context, userID uuid.UUID, file io.ReadSeeker, meta service.FileMeta) (string, error) {
	args := m.Called(ctx, userID, file, meta)
	return args.String(0), args.Error(1)
}
