package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
)

// ErrObjectNotFound is returned when a key does not exist in the store
var ErrObjectNotFound = errors.New("object not found")

// Storage defines the object store used for product images and seller logos
type Storage interface {
	// Upload stores a file and returns the result with key and URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete removes a file by its key.
	Delete(ctx context.Context, key string) error

	// KeyFromURL recovers the object key from a public URL produced by Upload.
	KeyFromURL(rawURL string) (string, error)
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}

// objectURL joins base and an escaped key
func objectURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

// keyFromURL takes the path of rawURL, drops the path of base if it has one,
// and strips the leading slash
func keyFromURL(base, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	path := u.Path
	if base != "" {
		if b, err := url.Parse(base); err == nil {
			path = strings.TrimPrefix(path, strings.TrimRight(b.Path, "/"))
		}
	}

	key := strings.TrimPrefix(path, "/")
	if key == "" {
		return "", errors.New("url has no object key")
	}
	return key, nil
}
