package transport

import (
	"errors"
	"net/http"
	"strconv"

	"lookkg/internal/domain"
	"lookkg/internal/logger"
	"lookkg/internal/middleware"
	"lookkg/internal/repository"
	"lookkg/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const msgProductNotFound = "Product Not Found"

// UpdateProductRequest represents the product update payload
type UpdateProductRequest struct {
	Name         string  `json:"name" validate:"required"`
	Price        float64 `json:"price" validate:"gte=0"`
	Image        string  `json:"image"`
	Category     string  `json:"category"`
	Brand        string  `json:"brand"`
	CountInStock int     `json:"countInStock" validate:"gte=0"`
	Description  string  `json:"description"`
}

// ReviewRequest represents the review payload
type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// ProductResponse wraps a product with a status message
type ProductResponse struct {
	Message string          `json:"message"`
	Product *domain.Product `json:"product"`
}

// ReviewResponse carries the created review and the seller after its rating changed
type ReviewResponse struct {
	Message string        `json:"message"`
	Review  domain.Review `json:"review"`
	User    *domain.User  `json:"user"`
}

// SeedProductsResponse lists the products created by the seed endpoint
type SeedProductsResponse struct {
	CreatedProducts []*domain.Product `json:"createdProducts"`
}

// ProductHandler handles HTTP requests for the catalog
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, sellerMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		// Public routes
		r.Get("/", h.List)
		r.Get("/seed", h.Seed)
		r.Get("/categories", h.Categories)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/{id}/reviews", h.AddReview)

			r.Group(func(r chi.Router) {
				r.Use(sellerMiddleware)
				r.Post("/", h.Create)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			})
		})
	})
}

// ParseProductQuery reads listing filters and the page number from query parameters.
// Unparseable numbers are treated as absent.
func ParseProductQuery(r *http.Request) (repository.ProductFilter, int) {
	q := r.URL.Query()

	filter := repository.ProductFilter{
		Name:      q.Get("name"),
		Category:  q.Get("category"),
		MinPrice:  parseFloat(q.Get("min")),
		MaxPrice:  parseFloat(q.Get("max")),
		MinRating: parseFloat(q.Get("rating")),
		Sort:      repository.ParseSortKey(q.Get("order")),
	}

	if seller := q.Get("seller"); seller != "" {
		// An unknown seller matches nothing rather than everything
		id, err := uuid.Parse(seller)
		if err != nil {
			id = uuid.Nil
		}
		filter.SellerID = &id
	}

	page, err := strconv.Atoi(q.Get("pageNumber"))
	if err != nil || page < 1 {
		page = 1
	}

	return filter, page
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// List handles catalog listing and search
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, page := ParseProductQuery(r)

	result, err := h.productService.List(r.Context(), filter, page)
	if err != nil {
		h.log(r).Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// Seed handles creation of the sample catalog
func (h *ProductHandler) Seed(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.Seed(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoSeller) {
			middleware.RespondWithError(w, http.StatusInternalServerError, service.ErrNoSeller.Error())
			return
		}
		h.log(r).Error("Failed to seed products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to seed products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, SeedProductsResponse{CreatedProducts: products})
}

// Categories handles listing distinct categories
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.productService.Categories(r.Context())
	if err != nil {
		h.log(r).Error("Failed to list categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// Get handles fetching a single product
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		h.respondProductError(w, r, err, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create handles creation of a placeholder product owned by the caller
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, middleware.MsgNoToken)
		return
	}

	product, err := h.productService.Create(r.Context(), identity.UserID)
	if err != nil {
		h.log(r).Error("Failed to create product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductResponse{Message: "Product Created", Product: product})
}

// Update handles overwriting a product's catalog fields
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.log(r).Debug("Product update validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.productService.Update(r.Context(), id, domain.ProductDetails{
		Name:         req.Name,
		Price:        req.Price,
		Image:        req.Image,
		Category:     req.Category,
		Brand:        req.Brand,
		CountInStock: req.CountInStock,
		Description:  req.Description,
	})
	if err != nil {
		h.respondProductError(w, r, err, "failed to update product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductResponse{Message: "Product Updated", Product: product})
}

// Delete handles removing a product
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, err := h.productService.Delete(r.Context(), id)
	if err != nil {
		h.respondProductError(w, r, err, "failed to delete product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductResponse{Message: "Product Deleted", Product: product})
}

// AddReview handles posting a review on a product
func (h *ProductHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, middleware.MsgNoToken)
		return
	}

	var req ReviewRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.log(r).Debug("Review validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	result, err := h.productService.AddReview(r.Context(), id, service.ReviewInput{
		ReviewerID: identity.UserID,
		Name:       identity.Name,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateReview):
			middleware.RespondWithError(w, http.StatusBadRequest, "You already submitted a review")
		case errors.Is(err, service.ErrInvalidRating):
			middleware.RespondWithError(w, http.StatusBadRequest, service.ErrInvalidRating.Error())
		default:
			h.respondProductError(w, r, err, "failed to add review")
		}
		return
	}

	h.log(r).Info("Review created",
		zap.String("product_id", id.String()),
		zap.String("user_id", identity.UserID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, ReviewResponse{
		Message: "Review Created",
		Review:  result.Review,
		User:    result.Seller,
	})
}

// productID reads the {id} URL parameter. A malformed id cannot name a product, so it is reported as not found.
func productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, msgProductNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *ProductHandler) respondProductError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, repository.ErrProductNotFound) {
		middleware.RespondWithError(w, http.StatusNotFound, msgProductNotFound)
		return
	}
	h.log(r).Error("Product request failed", zap.String("operation", message), zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, message)
}

// log returns the request-scoped logger carrying the request id
func (h *ProductHandler) log(r *http.Request) *zap.Logger {
	return logger.FromContext(r.Context(), h.logger)
}
