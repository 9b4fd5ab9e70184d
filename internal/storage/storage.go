// Package storage is the object bucket holding product images and payment
// proofs.
package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PrefixProducts  = "products"
	PrefixTransfers = "transfers"

	MaxImageSize = 5 << 20
)

var (
	ErrNotImage     = errors.New("file is not an image")
	ErrTooLarge     = errors.New("file exceeds 5 MB")
	ErrInvalidKey   = errors.New("invalid object key")
	ErrNotFound     = errors.New("object not found")
	ErrBadSignature = errors.New("invalid signature")
	ErrURLExpired   = errors.New("signed url expired")
)

// Object is an opened bucket entry.
type Object struct {
	io.ReadSeekCloser
	ContentType string
	ModTime     time.Time
}

// Bucket stores objects under slash-separated keys.
type Bucket interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	Open(key string) (*Object, error)
	PublicURL(key string) string
	SignedURL(key string, ttl time.Duration) (string, error)
	Verify(key, expires, signature string) error
}

// File is one upload candidate.
type File struct {
	Name string
	Data []byte
}

// ValidateImage sniffs data and returns its image content type.
func ValidateImage(data []byte) (string, error) {
	if len(data) > MaxImageSize {
		return "", ErrTooLarge
	}
	if len(data) == 0 {
		return "", ErrNotImage
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return "", ErrNotImage
	}
	return ct, nil
}

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// NewKey builds a unique key under prefix. The extension follows the
// content type, falling back to the original file name.
func NewKey(prefix, name, contentType string) string {
	ext, ok := extByType[contentType]
	if !ok {
		ext = strings.ToLower(path.Ext(name))
	}
	return prefix + "/" + uuid.NewString() + ext
}

// cleanKey rejects keys that would escape the bucket.
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned != key || strings.HasPrefix(cleaned, "..") || cleaned == "." {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
