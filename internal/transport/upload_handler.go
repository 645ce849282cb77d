package transport

import (
	"errors"
	"mime/multipart"
	"net/http"

	"lookkg/internal/logger"
	"lookkg/internal/middleware"
	"lookkg/internal/repository"
	"lookkg/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	uploadField = "image"
	// multipartOverhead is the room left for boundaries and part headers on top of the file limit
	multipartOverhead = 1 << 20
)

// UploadHandler handles image uploads
type UploadHandler struct {
	uploadService service.UploadService
	maxBytes      int64
	logger        *zap.Logger
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(uploadService service.UploadService, maxBytes int64, logger *zap.Logger) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = service.DefaultMaxUploadBytes
	}
	return &UploadHandler{
		uploadService: uploadService,
		maxBytes:      maxBytes,
		logger:        logger,
	}
}

// RegisterRoutes registers the upload routes. rateLimit is applied after authentication
// so that limits are tracked per user.
func (h *UploadHandler) RegisterRoutes(r chi.Router, authMiddleware, rateLimit func(http.Handler) http.Handler) {
	r.Route("/api/upload", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(rateLimit)
		r.Post("/", h.Upload)
		r.Post("/logo", h.UploadLogo)
	})
}

// Upload handles a single image upload and replies with its public URL
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, meta, ok := h.readFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	url, err := h.uploadService.Upload(r.Context(), file, meta)
	if err != nil {
		h.respondUploadError(w, r, err)
		return
	}

	middleware.RespondWithText(w, http.StatusOK, url)
}

// UploadLogo uploads an image and stores it as the caller's seller logo
func (h *UploadHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, middleware.MsgNoToken)
		return
	}

	file, meta, ok := h.readFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	url, err := h.uploadService.UploadLogo(r.Context(), identity.UserID, file, meta)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "User Not Found")
			return
		}
		h.respondUploadError(w, r, err)
		return
	}

	middleware.RespondWithText(w, http.StatusOK, url)
}

func (h *UploadHandler) readFile(w http.ResponseWriter, r *http.Request) (multipart.File, service.FileMeta, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.respondUploadError(w, r, service.ErrFileTooLarge)
		case errors.Is(err, http.ErrMissingFile):
			h.respondUploadError(w, r, service.ErrMissingFile)
		default:
			h.log(r).Debug("Malformed upload", zap.Error(err))
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		}
		return nil, service.FileMeta{}, false
	}

	return file, service.FileMeta{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}, true
}

func (h *UploadHandler) respondUploadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotImage):
		middleware.RespondWithError(w, http.StatusBadRequest, "Only image files allowed!")
	case errors.Is(err, service.ErrFileTooLarge):
		middleware.RespondWithError(w, http.StatusBadRequest, "File too large")
	case errors.Is(err, service.ErrMissingFile):
		middleware.RespondWithError(w, http.StatusBadRequest, "No image file provided")
	default:
		h.log(r).Error("Upload failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to upload image")
	}
}

// log returns the request-scoped logger carrying the request id
func (h *UploadHandler) log(r *http.Request) *zap.Logger {
	return logger.FromContext(r.Context(), h.logger)
}
