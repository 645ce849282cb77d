package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"lookkg/internal/repository"
	"lookkg/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// DefaultMaxUploadBytes is the largest accepted image, 5 MiB
const DefaultMaxUploadBytes int64 = 5 << 20

var (
	ErrNotImage     = errors.New("only image files allowed")
	ErrFileTooLarge = errors.New("file too large")
	ErrMissingFile  = errors.New("no image file provided")
)

var uploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lookkg_uploads_total",
		Help: "Image uploads by kind and result",
	},
	[]string{"kind", "result"},
)

// FileMeta describes an uploaded file as declared by the client
type FileMeta struct {
	Filename    string
	ContentType string
	Size        int64
}

// UploadService stores images on object storage and returns their public URL
type UploadService interface {
	Upload(ctx context.Context, file io.ReadSeeker, meta FileMeta) (string, error)
	UploadLogo(ctx context.Context, userID uuid.UUID, file io.ReadSeeker, meta FileMeta) (string, error)
}

type uploadService struct {
	store    storage.Storage
	users    repository.UserRepository
	cleaner  ImageCleaner
	maxBytes int64
	logger   *zap.Logger
	now      func() time.Time
}

// NewUploadService creates a new instance of UploadService. A non-positive
// maxBytes falls back to DefaultMaxUploadBytes.
func NewUploadService(
	store storage.Storage,
	users repository.UserRepository,
	cleaner ImageCleaner,
	maxBytes int64,
	logger *zap.Logger,
) UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &uploadService{
		store:    store,
		users:    users,
		cleaner:  cleaner,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
	}
}

// Upload validates the file and forwards it to object storage
func (s *uploadService) Upload(ctx context.Context, file io.ReadSeeker, meta FileMeta) (string, error) {
	url, err := s.put(ctx, file, meta)
	uploadsTotal.WithLabelValues("image", resultLabel(err)).Inc()
	return url, err
}

// UploadLogo uploads the file and records it as the caller's seller logo
func (s *uploadService) UploadLogo(ctx context.Context, userID uuid.UUID, file io.ReadSeeker, meta FileMeta) (string, error) {
	url, err := s.put(ctx, file, meta)
	if err != nil {
		uploadsTotal.WithLabelValues("logo", resultLabel(err)).Inc()
		return "", err
	}

	if err := s.users.UpdateSellerLogo(ctx, userID, url); err != nil {
		uploadsTotal.WithLabelValues("logo", "error").Inc()
		// The object is unreferenced now
		s.cleaner.Schedule(url)
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", err
		}
		return "", fmt.Errorf("failed to save seller logo: %w", err)
	}

	uploadsTotal.WithLabelValues("logo", "ok").Inc()
	s.logger.Info("Seller logo updated", zap.String("user_id", userID.String()))

	return url, nil
}

func (s *uploadService) put(ctx context.Context, file io.ReadSeeker, meta FileMeta) (string, error) {
	if file == nil {
		return "", ErrMissingFile
	}
	if !strings.HasPrefix(strings.ToLower(meta.ContentType), "image/") {
		return "", ErrNotImage
	}
	if meta.Size > s.maxBytes {
		return "", ErrFileTooLarge
	}

	contentType, err := sniffContentType(file)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	result, err := s.store.Upload(ctx, &storage.UploadInput{
		Key:         fmt.Sprintf("%d-%s", s.now().UnixMilli(), meta.Filename),
		ContentType: contentType,
		Size:        meta.Size,
		Data:        file,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	s.logger.Info("Image uploaded",
		zap.String("key", result.Key),
		zap.String("content_type", contentType),
		zap.Int64("size", meta.Size),
	)

	return result.URL, nil
}

// sniffContentType detects the stored content type from the file header and rewinds the file
func sniffContentType(file io.ReadSeeker) (string, error) {
	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return mtype.String(), nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotImage), errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrMissingFile):
		return "rejected"
	default:
		return "error"
	}
}
