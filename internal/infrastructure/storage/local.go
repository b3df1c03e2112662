// Package storage keeps uploaded listing images on local disk.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

// AllowedExtensions lists the accepted image file types.
var AllowedExtensions = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// LocalImageStore writes images under dir and serves them below prefix.
type LocalImageStore struct {
	dir     string
	prefix  string
	maxSize int64
	logger  *slog.Logger
}

func NewLocalImageStore(dir, prefix string, maxSize int64, logger *slog.Logger) (*LocalImageStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "/uploads/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalImageStore{dir: dir, prefix: prefix, maxSize: maxSize, logger: logger}, nil
}

// Save validates the upload's extension, sniffed type and size, then stores
// it under a fresh name. It returns the public URL.
func (s *LocalImageStore) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedExtensions[ext]; !ok {
		return "", domain.BadRequest("only image files are allowed (jpeg, jpg, png, gif, webp)")
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if sniffed := http.DetectContentType(head); !strings.HasPrefix(sniffed, "image/") {
		return "", domain.BadRequest("only image files are allowed (jpeg, jpg, png, gif, webp)")
	}

	name := "property-" + uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	src := io.Reader(br)
	if s.maxSize > 0 {
		src = io.LimitReader(br, s.maxSize+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr == nil && s.maxSize > 0 && n > s.maxSize {
		_ = os.Remove(path)
		return "", domain.BadRequest(fmt.Sprintf("image exceeds the %d byte limit", s.maxSize))
	}
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write image file: %w", err)
	}

	s.logger.Info("image stored", slog.String("file", name), slog.Int64("bytes", n))
	return s.prefix + name, nil
}

// Remove deletes the file behind url. URLs this store did not issue are
// ignored, as are files already gone.
func (s *LocalImageStore) Remove(_ context.Context, url string) error {
	if !strings.HasPrefix(url, s.prefix) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(url, s.prefix))
	if name == "." || name == string(filepath.Separator) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove image file: %w", err)
	}
	return nil
}

// Handler serves stored images below the store's prefix.
func (s *LocalImageStore) Handler() http.Handler {
	return http.StripPrefix(s.prefix, http.FileServer(http.Dir(s.dir)))
}

var _ domain.ImageStore = (*LocalImageStore)(nil)
