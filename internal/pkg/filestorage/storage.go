package filestorage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the configured limit
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")
	// ErrExtensionNotAllowed is returned for file types that are not accepted
	ErrExtensionNotAllowed = errors.New("file type is not allowed")
)

// StoredFile describes a saved upload
type StoredFile struct {
	Path string // relative to the storage root
	URL  string // public URL
	Size int64
}

// Storage saves uploaded files
type Storage interface {
	// Save stores r under dir with a generated name keeping the extension of filename
	Save(ctx context.Context, dir, filename string, r io.Reader) (StoredFile, error)
	// Delete removes a stored file; a missing file is not an error
	Delete(ctx context.Context, path string) error
}
