package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// Backend is an in-memory implementation of simplepublish.MediaStore.
// URLs it hands out are not signed; they name the key under BaseURL.
type Backend struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]object
}

type object struct {
	data        []byte
	contentType string
	updatedAt   time.Time
}

// New creates a new in-memory storage backend
func New(baseURL string) *Backend {
	if baseURL == "" {
		baseURL = "memory://media"
	}
	return &Backend{
		baseURL: baseURL,
		objects: make(map[string]object),
	}
}

// UploadURL returns a URL for uploading key
func (b *Backend) UploadURL(ctx context.Context, key, contentType string) (string, error) {
	q := url.Values{"op": {"put"}}
	if contentType != "" {
		q.Set("content_type", contentType)
	}
	return b.baseURL + "/" + key + "?" + q.Encode(), nil
}

// DownloadURL returns a URL for reading key
func (b *Backend) DownloadURL(ctx context.Context, key string) (string, error) {
	return b.baseURL + "/" + key, nil
}

// Stat returns metadata for key
func (b *Backend) Stat(ctx context.Context, key string) (*simplepublish.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[key]
	if !exists {
		return nil, simplepublish.ErrObjectMissing
	}
	sum := md5.Sum(obj.data)
	return &simplepublish.ObjectMeta{
		Key:         key,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		UpdatedAt:   obj.updatedAt,
		ETag:        hex.EncodeToString(sum[:]),
	}, nil
}

// Put stores the contents of reader under key
func (b *Backend) Put(ctx context.Context, key, contentType string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = object{data: data, contentType: contentType, updatedAt: time.Now().UTC()}
	return nil
}

// Get returns the stored bytes for key
func (b *Backend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[key]
	if !exists {
		return nil, simplepublish.ErrObjectMissing
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}
