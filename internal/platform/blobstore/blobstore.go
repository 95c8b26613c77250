// Package blobstore stores patient photos. It defines the BlobStore
// interface, a local-disk implementation used by the server and a
// thread-safe in-memory implementation for tests and the memory store mode.
package blobstore

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("only image files are allowed")
	ErrMissingFileName    = errors.New("file name is required")
)

// DefaultMaxFileSize caps photos at 5 MB.
const DefaultMaxFileSize = 5 * 1024 * 1024

// BlobMetadata describes a stored photo.
type BlobMetadata struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	Path         string    `json:"path"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// BlobStore is the contract for photo storage backends. Keys are the Path
// returned by Upload.
type BlobStore interface {
	Upload(ctx context.Context, originalName, contentType string, content io.Reader) (*BlobMetadata, error)
	Download(ctx context.Context, path string) (io.ReadCloser, *BlobMetadata, error)
	Delete(ctx context.Context, path string) error
}

// readImage reads at most maxSize bytes, rejects anything larger, and
// resolves the content type by sniffing when the client sent none or a
// generic one.
func readImage(originalName, contentType string, content io.Reader, maxSize int64) ([]byte, string, error) {
	if strings.TrimSpace(originalName) == "" {
		return nil, "", ErrMissingFileName
	}

	data, err := io.ReadAll(io.LimitReader(content, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", ErrFileTooLarge
	}

	ct := contentType
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	if !strings.HasPrefix(ct, "image/") {
		return nil, "", ErrInvalidContentType
	}
	return data, ct, nil
}

// generateFilename returns patient-<unixmillis>-<random><ext>.
func generateFilename(originalName string, now time.Time) string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("patient-%d-%s%s", now.UnixMilli(), hex.EncodeToString(b[:]), ext)
}

type storedBlob struct {
	metadata BlobMetadata
	content  []byte
}

// InMemoryBlobStore is a thread-safe, in-memory BlobStore.
type InMemoryBlobStore struct {
	mu      sync.RWMutex
	blobs   map[string]*storedBlob
	maxSize int64
}

func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{
		blobs:   make(map[string]*storedBlob),
		maxSize: DefaultMaxFileSize,
	}
}

func (s *InMemoryBlobStore) Upload(_ context.Context, originalName, contentType string, content io.Reader) (*BlobMetadata, error) {
	data, ct, err := readImage(originalName, contentType, content, s.maxSize)
	if err != nil {
		return nil, err
	}

	name := generateFilename(originalName, time.Now())
	meta := BlobMetadata{
		Filename:     name,
		OriginalName: originalName,
		MimeType:     ct,
		Size:         int64(len(data)),
		Path:         "mem/" + name,
		UploadedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.blobs[meta.Path] = &storedBlob{metadata: meta, content: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

func (s *InMemoryBlobStore) Download(_ context.Context, path string) (io.ReadCloser, *BlobMetadata, error) {
	s.mu.RLock()
	blob, ok := s.blobs[path]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrBlobNotFound
	}
	meta := blob.metadata
	return io.NopCloser(bytes.NewReader(blob.content)), &meta, nil
}

func (s *InMemoryBlobStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[path]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, path)
	return nil
}

// Len reports how many blobs are stored.
func (s *InMemoryBlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
