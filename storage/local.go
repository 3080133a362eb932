package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// LocalProvider implements DirProvider for a local (or in-memory) filesystem.
// IDs are absolute paths.
type LocalProvider struct {
	fs  afero.Fs
	log zerolog.Logger
}

// LocalOption configures a LocalProvider.
type LocalOption func(*LocalProvider)

// WithFs swaps the backing filesystem, e.g. afero.NewMemMapFs() in tests.
func WithFs(fs afero.Fs) LocalOption {
	return func(p *LocalProvider) { p.fs = fs }
}

// WithLogger sets the logger used for entries skipped during listing.
func WithLogger(l zerolog.Logger) LocalOption {
	return func(p *LocalProvider) { p.log = l }
}

// NewLocalProvider creates a new local filesystem provider
func NewLocalProvider(opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{
		fs:  afero.NewOsFs(),
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fs returns the backing filesystem.
func (p *LocalProvider) Fs() afero.Fs { return p.fs }

func (p *LocalProvider) abs(path string) (string, error) {
	if _, ok := p.fs.(*afero.OsFs); !ok {
		return filepath.Clean(path), nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return absPath, nil
}

func (p *LocalProvider) lstat(path string) (os.FileInfo, error) {
	if l, ok := p.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return p.fs.Stat(path)
}

func (p *LocalProvider) checkDir(path string) (string, error) {
	absPath, err := p.abs(path)
	if err != nil {
		return "", &PathError{Path: path, Reason: "cannot be resolved", Err: err}
	}
	info, err := p.fs.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &PathError{Path: absPath, Reason: "does not exist"}
		}
		return "", &PathError{Path: absPath, Reason: "cannot be read", Err: err}
	}
	if !info.IsDir() {
		return "", &PathError{Path: absPath, Reason: "is not a directory"}
	}
	return absPath, nil
}

// ListFiles lists all files in a directory (optionally recursive). Symlinks
// are reported by the walk via lstat and skipped, so links are never followed.
func (p *LocalProvider) ListFiles(ctx context.Context, path string, recursive bool) ([]FileInfo, error) {
	root, err := p.checkDir(path)
	if err != nil {
		return nil, err
	}

	var files []FileInfo

	err = afero.Walk(p.fs, root, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			if filePath == root {
				return &PathError{Path: root, Reason: "cannot be read", Err: err}
			}
			p.log.Warn().Err(err).Str("path", filePath).Msg("skipping unreadable entry")
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Check context cancellation
		if err := ctx.Err(); err != nil {
			return err
		}

		// Skip root directory itself
		if filePath == root {
			return nil
		}

		if info.IsDir() {
			files = append(files, toFileInfo(filePath, info))
			if !recursive {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		files = append(files, toFileInfo(filePath, info))
		return nil
	})

	if err != nil {
		var pe *PathError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return files, nil
}

// Stat describes a regular file.
func (p *LocalProvider) Stat(ctx context.Context, id string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}

	info, err := p.lstat(id)
	if err != nil {
		return FileInfo{}, err
	}
	if !info.Mode().IsRegular() {
		return FileInfo{}, fmt.Errorf("%s: %w", id, ErrNotRegular)
	}
	return toFileInfo(id, info), nil
}

// OpenFile opens a file for reading
func (p *LocalProvider) OpenFile(ctx context.Context, id string) (io.ReadCloser, error) {
	if _, err := p.Stat(ctx, id); err != nil {
		return nil, err
	}

	file, err := p.fs.Open(id)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// DeleteFile deletes a file
func (p *LocalProvider) DeleteFile(ctx context.Context, id string) error {
	if _, err := p.Stat(ctx, id); err != nil {
		return err
	}

	if err := p.fs.Remove(id); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// MoveFile moves a file to a new location. A rename across devices falls back
// to copy and remove, which is not atomic.
func (p *LocalProvider) MoveFile(ctx context.Context, id string, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := p.lstat(newPath); err == nil {
		return &CollisionError{Src: id, Dst: newPath}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check target: %w", err)
	}

	// Ensure target directory exists
	if err := p.fs.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	// The check above can race with a file appearing at newPath; on the OS
	// filesystem the rename itself refuses to replace.
	if _, ok := p.fs.(*afero.OsFs); ok {
		err := renameNoReplace(id, newPath)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, os.ErrExist):
			return &CollisionError{Src: id, Dst: newPath}
		case isEXDEV(err):
			return p.copyAndRemove(ctx, id, newPath)
		case !errors.Is(err, errNoReplaceUnsupported):
			return fmt.Errorf("failed to move file: %w", err)
		}
	}

	if err := p.fs.Rename(id, newPath); err != nil {
		if isEXDEV(err) {
			return p.copyAndRemove(ctx, id, newPath)
		}
		return fmt.Errorf("failed to move file: %w", err)
	}

	return nil
}

func (p *LocalProvider) copyAndRemove(ctx context.Context, src, dst string) error {
	info, err := p.Stat(ctx, src)
	if err != nil {
		return err
	}

	in, err := p.fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	err = WriteNewFile(p.fs, dst, in, info.ModTime)
	in.Close()
	if err != nil {
		return err
	}

	if err := p.fs.Remove(src); err != nil {
		return fmt.Errorf("copied to %s but failed to remove source: %w", dst, err)
	}
	return nil
}

// MakeDir creates path and its parents.
func (p *LocalProvider) MakeDir(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := p.fs.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return false, &CollisionError{Dst: path}
		}
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, err
	}

	if err := p.fs.MkdirAll(path, 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	return true, nil
}

// RemoveDirIfEmpty removes path if it is an empty directory.
func (p *LocalProvider) RemoveDirIfEmpty(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	empty, err := afero.IsEmpty(p.fs, path)
	if err != nil || !empty {
		return false, err
	}
	if err := p.fs.Remove(path); err != nil {
		return false, fmt.Errorf("failed to remove directory: %w", err)
	}
	return true, nil
}

// Name returns the provider name
func (p *LocalProvider) Name() string {
	return string(ProviderLocal)
}

// Close cleans up provider resources (no-op for local)
func (p *LocalProvider) Close() error {
	return nil
}

// WriteNewFile copies r into a file that must not exist yet and stamps it with
// modTime when that is non-zero. An existing dst is a *CollisionError.
func WriteNewFile(fs afero.Fs, dst string, r io.Reader, modTime time.Time) error {
	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return &CollisionError{Dst: dst}
		}
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		_ = fs.Remove(dst)
		return fmt.Errorf("failed to copy into %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		_ = fs.Remove(dst)
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}

	if !modTime.IsZero() {
		if err := fs.Chtimes(dst, modTime, modTime); err != nil {
			return fmt.Errorf("failed to set times on %s: %w", dst, err)
		}
	}
	return nil
}

func toFileInfo(path string, info os.FileInfo) FileInfo {
	return FileInfo{
		ID:      path,
		Name:    info.Name(),
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
}

// Ensure LocalProvider implements DirProvider interface
var _ DirProvider = (*LocalProvider)(nil)
