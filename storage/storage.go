// Package storage abstracts the file API the rest of dupesort works against.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// FileInfo represents a file from any storage provider
type FileInfo struct {
	ID       string    // Provider-specific ID (for local: absolute path)
	Name     string    // File name
	Path     string    // Display path
	Size     int64     // File size in bytes
	ModTime  time.Time // Last modified time
	IsDir    bool      // Is directory
	MimeType string    // MIME type (if available)
}

// Provider defines the interface for storage providers
type Provider interface {
	// ListFiles lists regular files and directories under path (optionally
	// recursive). Symlinks and other special files are never listed.
	// A missing or non-directory path yields an error matching ErrInvalidPath.
	ListFiles(ctx context.Context, path string, recursive bool) ([]FileInfo, error)

	// Stat describes a regular file. Anything else yields ErrNotRegular.
	Stat(ctx context.Context, id string) (FileInfo, error)

	// OpenFile opens a regular file for reading
	OpenFile(ctx context.Context, id string) (io.ReadCloser, error)

	// DeleteFile deletes a file
	DeleteFile(ctx context.Context, id string) error

	// MoveFile moves a file to newPath. An occupied newPath is a
	// *CollisionError; nothing is overwritten.
	MoveFile(ctx context.Context, id string, newPath string) error

	// Name returns the provider name
	Name() string

	// Close cleans up provider resources
	Close() error
}

// DirProvider is a Provider that can also manage directories. Reorganization
// needs it; only the local provider implements it.
type DirProvider interface {
	Provider

	// MakeDir creates path and any missing parents. created reports whether
	// path itself did not exist before the call.
	MakeDir(ctx context.Context, path string) (created bool, err error)

	// RemoveDirIfEmpty removes path only when it has no entries.
	RemoveDirIfEmpty(ctx context.Context, path string) (removed bool, err error)
}

// ProviderType represents the type of storage provider
type ProviderType string

const (
	ProviderLocal       ProviderType = "local"
	ProviderGoogleDrive ProviderType = "google-drive"
)

// ParseProviderType resolves a provider name from flags or config.
func ParseProviderType(s string) (ProviderType, error) {
	switch ProviderType(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderLocal, "":
		return ProviderLocal, nil
	case ProviderGoogleDrive, "gdrive", "drive":
		return ProviderGoogleDrive, nil
	default:
		return "", fmt.Errorf("unknown storage provider: %s", s)
	}
}
