package transport

import (
	"errors"
	"net/http"

	"lookkg/internal/domain"
	"lookkg/internal/logger"
	"lookkg/internal/middleware"
	"lookkg/internal/repository"
	"lookkg/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const msgUserNotFound = "User Not Found"

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}

// SigninRequest represents the sign-in request payload
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SellerProfileRequest is the editable part of a seller profile
type SellerProfileRequest struct {
	Name        string            `json:"name"`
	Logo        string            `json:"logo"`
	LogoData    []byte            `json:"notLogo"`
	Description string            `json:"description"`
	Instagram   domain.Instagram  `json:"instagram"`
	PayMethod   domain.PayMethods `json:"payMethod"`
}

// ProfileRequest represents the profile update payload. Empty fields are left unchanged.
type ProfileRequest struct {
	Name     string                `json:"name"`
	Email    string                `json:"email" validate:"omitempty,email"`
	Password string                `json:"password" validate:"omitempty,min=4"`
	Seller   *SellerProfileRequest `json:"seller"`
}

// SigninResponse is the signed-in user with their token
type SigninResponse struct {
	ID       uuid.UUID            `json:"_id"`
	Name     string               `json:"name"`
	Email    string               `json:"email"`
	IsAdmin  bool                 `json:"isAdmin"`
	IsSeller bool                 `json:"isSeller"`
	Seller   domain.SellerProfile `json:"seller"`
	Token    string               `json:"token"`
}

// SeedUsersResponse lists the accounts created by the seed endpoint
type SeedUsersResponse struct {
	CreatedUsers []*domain.User `json:"createdUsers"`
}

func newSigninResponse(result *service.AuthResult) SigninResponse {
	return SigninResponse{
		ID:       result.User.ID,
		Name:     result.User.Name,
		Email:    result.User.Email,
		IsAdmin:  result.User.IsAdmin,
		IsSeller: result.User.IsSeller,
		Seller:   result.User.Seller,
		Token:    result.Token,
	}
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/users", func(r chi.Router) {
		// Public routes
		r.Get("/seed", h.Seed)
		r.Post("/signin", h.Signin)
		r.Post("/register", h.Register)
		r.Get("/{id}", h.Get)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Put("/profile", h.UpdateProfile)
		})
	})
}

// Seed handles creation of the sample accounts
func (h *UserHandler) Seed(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.Seed(r.Context())
	if err != nil {
		h.log(r).Error("Failed to seed users", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to seed users")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, SeedUsersResponse{CreatedUsers: users})
}

// Signin handles user authentication
func (h *UserHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.log(r).Debug("Signin validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	result, err := h.userService.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			middleware.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.log(r).Error("Signin failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	h.log(r).Info("User signed in", zap.String("user_id", result.User.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, newSigninResponse(result))
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.log(r).Debug("Registration validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	result, err := h.userService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			middleware.RespondWithError(w, http.StatusConflict, repository.ErrUserAlreadyExists.Error())
			return
		}
		h.log(r).Error("Registration failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	h.log(r).Info("User registered successfully", zap.String("user_id", result.User.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, newSigninResponse(result))
}

// Get handles fetching a user's public profile
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, msgUserNotFound)
			return
		}
		h.log(r).Error("Failed to get user", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get user")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, user)
}

// UpdateProfile handles updating the caller's own profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		h.log(r).Error("Identity not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, middleware.MsgNoToken)
		return
	}

	var req ProfileRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.log(r).Debug("Profile validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	update := service.ProfileUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}
	if req.Seller != nil {
		update.Seller = &domain.SellerProfile{
			Name:        req.Seller.Name,
			Logo:        req.Seller.Logo,
			LogoData:    req.Seller.LogoData,
			Description: req.Seller.Description,
			Instagram:   req.Seller.Instagram,
			PayMethod:   req.Seller.PayMethod,
		}
	}

	result, err := h.userService.UpdateProfile(r.Context(), identity.UserID, update)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, msgUserNotFound)
		case errors.Is(err, repository.ErrUserAlreadyExists):
			middleware.RespondWithError(w, http.StatusConflict, repository.ErrUserAlreadyExists.Error())
		default:
			h.log(r).Error("Profile update failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update profile")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newSigninResponse(result))
}

// log returns the request-scoped logger carrying the request id
func (h *UserHandler) log(r *http.Request) *zap.Logger {
	return logger.FromContext(r.Context(), h.logger)
}
