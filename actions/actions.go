// Package actions deletes, moves and backs up files chosen from duplicate
// groups. Every call handles each path on its own and reports per-item
// outcomes; one failure never stops the rest of the batch.
package actions

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/luinbytes/dupesort/batch"
	"github.com/luinbytes/dupesort/storage"
)

// DefaultBackupDirName is created in the user's home directory when no backup
// directory is configured.
const DefaultBackupDirName = "dupesort-backup"

// DefaultBackupDir returns ~/dupesort-backup, or a relative path when the home
// directory cannot be determined.
func DefaultBackupDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultBackupDirName
	}
	return filepath.Join(home, DefaultBackupDirName)
}

// Executor carries out file actions through a storage provider. Backups are
// always written to a local filesystem.
type Executor struct {
	fs        storage.Provider
	backupFs  afero.Fs
	backupDir string
	log       zerolog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithBackupDir sets the backup root.
func WithBackupDir(dir string) Option {
	return func(e *Executor) {
		if dir != "" {
			e.backupDir = dir
		}
	}
}

// WithBackupFs sets the filesystem backups are written to.
func WithBackupFs(fs afero.Fs) Option {
	return func(e *Executor) { e.backupFs = fs }
}

// WithLogger sets the logger for per-item results.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// New creates an Executor and makes sure the backup root exists.
func New(fs storage.Provider, opts ...Option) (*Executor, error) {
	e := &Executor{
		fs:        fs,
		backupFs:  afero.NewOsFs(),
		backupDir: DefaultBackupDir(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.backupFs.MkdirAll(e.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return e, nil
}

// BackupDir returns the backup root.
func (e *Executor) BackupDir() string { return e.backupDir }

// Delete removes each path.
func (e *Executor) Delete(ctx context.Context, paths []string) batch.Outcome {
	var out batch.Outcome
	for _, p := range paths {
		if err := e.fs.DeleteFile(ctx, p); err != nil {
			e.fail(&out, "delete", p, err)
			continue
		}
		e.log.Debug().Str("path", p).Msg("deleted")
		out.Succeed(p)
	}
	return out
}

// Move moves each path into destDir under its own name. A name already present
// in destDir fails that item with a collision.
func (e *Executor) Move(ctx context.Context, paths []string, destDir string) batch.Outcome {
	var out batch.Outcome
	for _, p := range paths {
		info, err := e.fs.Stat(ctx, p)
		if err != nil {
			e.fail(&out, "move", p, err)
			continue
		}

		dst := filepath.Join(destDir, info.Name)
		if err := e.fs.MoveFile(ctx, p, dst); err != nil {
			e.fail(&out, "move", p, err)
			continue
		}
		e.log.Debug().Str("path", p).Str("dest", dst).Msg("moved")
		out.Succeed(p)
	}
	return out
}

// Backup copies each path into the backup root, keeping its name and
// modification time. Existing backups are never overwritten.
func (e *Executor) Backup(ctx context.Context, paths []string) batch.Outcome {
	var out batch.Outcome
	for _, p := range paths {
		dst, err := e.backupOne(ctx, p)
		if err != nil {
			e.fail(&out, "backup", p, err)
			continue
		}
		e.log.Debug().Str("path", p).Str("dest", dst).Msg("backed up")
		out.Succeed(p)
	}
	return out
}

func (e *Executor) backupOne(ctx context.Context, p string) (string, error) {
	info, err := e.fs.Stat(ctx, p)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(e.backupDir, info.Name)
	if _, err := e.backupFs.Stat(dst); err == nil {
		return "", &storage.CollisionError{Src: p, Dst: dst}
	}

	rc, err := e.fs.OpenFile(ctx, p)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	if err := storage.WriteNewFile(e.backupFs, dst, rc, info.ModTime); err != nil {
		if ce, ok := err.(*storage.CollisionError); ok {
			ce.Src = p
		}
		return "", err
	}
	return dst, nil
}

func (e *Executor) fail(out *batch.Outcome, op, path string, err error) {
	e.log.Warn().Err(err).Str("op", op).Str("path", path).Msg("file action failed")
	out.Fail(path, err)
}
