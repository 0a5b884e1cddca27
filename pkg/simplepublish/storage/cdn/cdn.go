// Package cdn serves playback through a CDN while uploads and metadata
// checks stay on the origin store.
package cdn

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// Store wraps an origin MediaStore and rewrites download URLs to the CDN.
type Store struct {
	origin  simplepublish.MediaStore
	baseURL string
}

// New wraps origin. baseURL is the CDN root the origin keys are mirrored under,
// e.g. https://cdn.example.com/media.
func New(origin simplepublish.MediaStore, baseURL string) (*Store, error) {
	if origin == nil {
		return nil, errors.New("cdn: origin store is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("cdn: base URL must be absolute")
	}
	return &Store{origin: origin, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// UploadURL delegates to the origin.
func (s *Store) UploadURL(ctx context.Context, key, contentType string) (string, error) {
	return s.origin.UploadURL(ctx, key, contentType)
}

// DownloadURL returns the CDN URL for key.
func (s *Store) DownloadURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", errors.New("cdn: empty key")
	}
	segments := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/"), nil
}

// Stat delegates to the origin.
func (s *Store) Stat(ctx context.Context, key string) (*simplepublish.ObjectMeta, error) {
	return s.origin.Stat(ctx, key)
}

// Origin returns the wrapped store.
func (s *Store) Origin() simplepublish.MediaStore {
	return s.origin
}
