package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiskStore keeps photos as files under a single upload directory.
type DiskStore struct {
	dir     string
	maxSize int64
	now     func() time.Time
}

// NewDiskStore creates the upload directory if needed.
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &DiskStore{dir: dir, maxSize: maxSize, now: time.Now}, nil
}

func (s *DiskStore) Upload(ctx context.Context, originalName, contentType string, content io.Reader) (*BlobMetadata, error) {
	data, ct, err := readImage(originalName, contentType, content, s.maxSize)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := generateFilename(originalName, s.now())
	path := filepath.Join(s.dir, name)

	// Write to a temp file first so a reader never sees a partial photo.
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("close photo: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("store photo: %w", err)
	}

	return &BlobMetadata{
		Filename:     name,
		OriginalName: originalName,
		MimeType:     ct,
		Size:         int64(len(data)),
		Path:         path,
		UploadedAt:   s.now().UTC(),
	}, nil
}

func (s *DiskStore) Download(_ context.Context, path string) (io.ReadCloser, *BlobMetadata, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("open photo: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat photo: %w", err)
	}

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("rewind photo: %w", err)
	}

	return f, &BlobMetadata{
		Filename:   filepath.Base(full),
		MimeType:   http.DetectContentType(head[:n]),
		Size:       info.Size(),
		Path:       path,
		UploadedAt: info.ModTime().UTC(),
	}, nil
}

func (s *DiskStore) Delete(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

// resolve maps a stored path back into the upload directory and refuses
// anything that escapes it.
func (s *DiskStore) resolve(path string) (string, error) {
	base := filepath.Base(path)
	if path == "" || base == "/" || strings.HasPrefix(base, ".") {
		return "", ErrBlobNotFound
	}
	return filepath.Join(s.dir, base), nil
}
