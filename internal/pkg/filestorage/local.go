package filestorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultAllowedExtensions are the attachment types accepted by default
var DefaultAllowedExtensions = []string{".pdf", ".zip", ".txt", ".md", ".png", ".jpg", ".jpeg", ".docx", ".odt"}

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // The root directory where files will be stored
	baseURL  string // The base URL the root directory is served from
	maxBytes int64
	allowed  map[string]bool
	logger   zerolog.Logger
}

// NewLocalStorage creates the storage root if needed.
// An empty allowed list accepts every extension.
func NewLocalStorage(basePath, baseURL string, maxBytes int64, allowed []string, logger zerolog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	ext := make(map[string]bool, len(allowed))
	for _, e := range allowed {
		ext[strings.ToLower(e)] = true
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		allowed:  ext,
		logger:   logger,
	}, nil
}

// Save writes r to basePath/dir/<uuid><ext>
func (ls *LocalStorage) Save(ctx context.Context, dir, filename string, r io.Reader) (StoredFile, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ls.allowed) > 0 && !ls.allowed[ext] {
		return StoredFile{}, fmt.Errorf("%w: %q", ErrExtensionNotAllowed, ext)
	}
	dir = filepath.Clean("/" + dir)[1:]

	fullDir := filepath.Join(ls.basePath, dir)
	if err := os.MkdirAll(fullDir, 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("failed to create subdirectory: %w", err)
	}

	name := uuid.New().String() + ext
	dstPath := filepath.Join(fullDir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to create destination file: %w", err)
	}

	src := r
	if ls.maxBytes > 0 {
		// one extra byte tells an exact fit from an overflow
		src = io.LimitReader(r, ls.maxBytes+1)
	}
	size, err := io.Copy(dst, src)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && ls.maxBytes > 0 && size > ls.maxBytes {
		err = ErrFileTooLarge
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = os.Remove(dstPath)
		return StoredFile{}, fmt.Errorf("failed to save file content: %w", err)
	}

	rel := filepath.ToSlash(filepath.Join(dir, name))
	ls.logger.Info().Str("filename", filename).Str("path", rel).Int64("size", size).Msg("File saved")
	return StoredFile{Path: rel, URL: ls.baseURL + "/" + rel, Size: size}, nil
}

// Delete removes a file below the storage root
func (ls *LocalStorage) Delete(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	clean := filepath.Clean("/" + path)[1:]
	if clean == "" {
		return fmt.Errorf("invalid file path: %s", path)
	}
	if err := os.Remove(filepath.Join(ls.basePath, clean)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
