package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"lookkg/internal/domain"
	"lookkg/internal/middleware"
	"lookkg/internal/repository"
	"lookkg/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserRouter(svc service.UserService) http.Handler {
	logger := zap.NewNop()
	r := chi.NewRouter()
	NewUserHandler(svc, logger).RegisterRoutes(r, middleware.AuthMiddleware(testSecret, logger))
	return r
}

// Property: invalid registration payloads are rejected before reaching the service
func TestProperty_InvalidRegistrationDataIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("registration with invalid data returns 400", prop.ForAll(
		func(invalidCase int) bool {
			svc := new(mockUserService)

			var req RegisterRequest
			switch invalidCase % 4 {
			case 0:
				req = RegisterRequest{Name: "Bakyt", Email: "", Password: "1234"}
			case 1:
				req = RegisterRequest{Name: "Bakyt", Email: "not-an-email", Password: "1234"}
			case 2:
				req = RegisterRequest{Name: "Bakyt", Email: "bakyt@look.kg", Password: "123"}
			case 3:
				req = RegisterRequest{Email: "bakyt@look.kg", Password: "1234"}
			}

			w := doRequest(t, newUserRouter(svc), http.MethodPost, "/api/users/register", "", req)
			if w.Code != http.StatusBadRequest {
				t.Logf("FAIL: expected 400, got %d", w.Code)
				return false
			}

			var response middleware.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil || response.Message == "" {
				return false
			}
			return len(svc.Calls) == 0
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func authResult(user *domain.User) *service.AuthResult {
	return &service.AuthResult{User: user, Token: "signed.jwt.token"}
}

func TestSignin(t *testing.T) {
	user := &domain.User{
		ID:       uuid.New(),
		Name:     "Aizada",
		Email:    "aizada@look.kg",
		IsSeller: true,
		Seller:   domain.SellerProfile{Name: "Aizada Crafts"},
	}

	t.Run("success", func(t *testing.T) {
		svc := new(mockUserService)
		svc.On("Signin", mock.Anything, "aizada@look.kg", "1234").Return(authResult(user), nil)

		w := doRequest(t, newUserRouter(svc), http.MethodPost, "/api/users/signin", "",
			SigninRequest{Email: "aizada@look.kg", Password: "1234"})

		require.Equal(t, http.StatusOK, w.Code)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, user.ID.String(), got["_id"])
		assert.Equal(t, "Aizada", got["name"])
		assert.Equal(t, true, got["isSeller"])
		assert.Equal(t, false, got["isAdmin"])
		assert.Equal(t, "signed.jwt.token", got["token"])
		assert.NotContains(t, got, "password")
		seller, ok := got["seller"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Aizada Crafts", seller["name"])
	})

	t.Run("bad credentials", func(t *testing.T) {
		svc := new(mockUserService)
		svc.On("Signin", mock.Anything, "aizada@look.kg", "nope").Return(nil, service.ErrInvalidCredentials)

		w := doRequest(t, newUserRouter(svc), http.MethodPost, "/api/users/signin", "",
			SigninRequest{Email: "aizada@look.kg", Password: "nope"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid email or password", decodeMessage(t, w))
	})
}

func TestRegister(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(mockUserService)
		user := &domain.User{ID: uuid.New(), Name: "Bakyt", Email: "bakyt@look.kg"}
		svc.On("Register", mock.Anything, "Bakyt", "bakyt@look.kg", "1234").Return(authResult(user), nil)

		w := doRequest(t, newUserRouter(svc), http.MethodPost, "/api/users/register", "",
			RegisterRequest{Name: "Bakyt", Email: "bakyt@look.kg", Password: "1234"})

		require.Equal(t, http.StatusCreated, w.Code)
		var got SigninResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, user.ID, got.ID)
		assert.NotEmpty(t, got.Token)
	})

	t.Run("duplicate", func(t *testing.T) {
		svc := new(mockUserService)
		svc.On("Register", mock.Anything, "Bakyt", "bakyt@look.kg", "1234").Return(nil, repository.ErrUserAlreadyExists)

		w := doRequest(t, newUserRouter(svc), http.MethodPost, "/api/users/register", "",
			RegisterRequest{Name: "Bakyt", Email: "bakyt@look.kg", Password: "1234"})

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestGetUser(t *testing.T) {
	svc := new(mockUserService)
	user := &domain.User{ID: uuid.New(), Name: "Aizada", PasswordHash: "$2a$10$secret"}
	svc.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
	missing := uuid.New()
	svc.On("GetUserByID", mock.Anything, missing).Return(nil, repository.ErrUserNotFound)

	router := newUserRouter(svc)

	w := doRequest(t, router, http.MethodGet, "/api/users/"+user.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "$2a$10$secret")

	w = doRequest(t, router, http.MethodGet, "/api/users/"+missing.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/users/garbage", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSeedUsers(t *testing.T) {
	svc := new(mockUserService)
	svc.On("Seed", mock.Anything).Return([]*domain.User{{ID: uuid.New(), Name: "Admin", IsAdmin: true}}, nil)

	w := doRequest(t, newUserRouter(svc), http.MethodGet, "/api/users/seed", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got SeedUsersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.CreatedUsers, 1)
	assert.Equal(t, "Admin", got.CreatedUsers[0].Name)
}

func TestUpdateProfile(t *testing.T) {
	identity := middleware.Identity{UserID: uuid.New(), Name: "Aizada", IsSeller: true}

	t.Run("requires token", func(t *testing.T) {
		svc := new(mockUserService)

		w := doRequest(t, newUserRouter(svc), http.MethodPut, "/api/users/profile", "", ProfileRequest{Name: "x"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("seller fields are forwarded", func(t *testing.T) {
		svc := new(mockUserService)
		updated := &domain.User{ID: identity.UserID, Name: "Aizada K.", IsSeller: true}
		svc.On("UpdateProfile", mock.Anything, identity.UserID, mock.MatchedBy(func(u service.ProfileUpdate) bool {
			return u.Name == "Aizada K." && u.Seller != nil && u.Seller.Name == "Aizada Crafts" &&
				u.Seller.PayMethod.MBank == "0555"
		})).Return(authResult(updated), nil)

		w := doRequest(t, newUserRouter(svc), http.MethodPut, "/api/users/profile", tokenFor(t, identity), ProfileRequest{
			Name: "Aizada K.",
			Seller: &SellerProfileRequest{
				Name:      "Aizada Crafts",
				PayMethod: domain.PayMethods{MBank: "0555"},
			},
		})

		require.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("email taken", func(t *testing.T) {
		svc := new(mockUserService)
		svc.On("UpdateProfile", mock.Anything, identity.UserID, mock.Anything).Return(nil, repository.ErrUserAlreadyExists)

		w := doRequest(t, newUserRouter(svc), http.MethodPut, "/api/users/profile", tokenFor(t, identity),
			ProfileRequest{Email: "taken@look.kg"})

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestSigninTokenWorksOnProtectedRoutes(t *testing.T) {
	repo := &memoryUsers{users: map[string]*domain.User{}}
	svc := service.NewUserService(repo, testSecret, time.Hour, zap.NewNop())
	router := newUserRouter(svc)

	w := doRequest(t, router, http.MethodPost, "/api/users/register", "",
		RegisterRequest{Name: "Bakyt", Email: "bakyt@look.kg", Password: "1234"})
	require.Equal(t, http.StatusCreated, w.Code)
	var registered SigninResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))

	w = doRequest(t, router, http.MethodPut, "/api/users/profile", registered.Token, ProfileRequest{Name: "Bakyt A."})
	require.Equal(t, http.StatusOK, w.Code)

	var updated SigninResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Bakyt A.", updated.Name)
}

// memoryUsers is a minimal user store for exercising the real service through HTTP
type memoryUsers struct {
	repository.UserRepository
	users map[string]*domain.User
}

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	if _, ok := m.users[user.Email]; ok {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryUsers) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryUsers) Update(_ context.Context, user *domain.User) error {
	m.users[user.Email] = user
	return nil
}
