// Package upload stores ticket images on local disk and derives their public URLs.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-triage/internal/config"
)

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
}

// StoredImage locates a saved image on disk and on the static route.
type StoredImage struct {
	Path string
	URL  string
}

// ImageStore writes uploaded images under a single directory.
type ImageStore struct {
	dir      string
	prefix   string
	maxBytes int64
	now      func() time.Time
}

// NewImageStore creates the upload directory if needed.
func NewImageStore(cfg config.UploadConfig) (*ImageStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", cfg.Dir, err)
	}
	return &ImageStore{
		dir:      cfg.Dir,
		prefix:   strings.TrimRight(cfg.PublicPrefix, "/"),
		maxBytes: int64(cfg.MaxBytes),
		now:      time.Now,
	}, nil
}

// Dir returns the directory images are written to.
func (s *ImageStore) Dir() string {
	return s.dir
}

// Allowed reports whether filename has an accepted image extension.
func Allowed(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Save copies the uploaded file into the store under a fresh name. The client
// file name contributes only its extension.
func (s *ImageStore) Save(fh *multipart.FileHeader) (*StoredImage, error) {
	if !Allowed(fh.Filename) {
		return nil, fmt.Errorf("file type not allowed: %q", fh.Filename)
	}
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return nil, fmt.Errorf("image %q is %d bytes, limit %d", fh.Filename, fh.Size, s.maxBytes)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("%s_%s%s",
		s.now().Format("20060102150405"),
		uuid.NewString(),
		strings.ToLower(filepath.Ext(fh.Filename)))
	path := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close %s: %w", path, err)
	}

	return &StoredImage{Path: path, URL: s.prefix + "/" + name}, nil
}

// Remove deletes a previously saved image. A missing file is not an error.
func (s *ImageStore) Remove(img *StoredImage) error {
	if img == nil {
		return nil
	}
	if err := os.Remove(img.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
