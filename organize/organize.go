// Package organize sorts the files of a flat directory into subfolders and can
// reverse the most recent run.
package organize

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/luinbytes/dupesort/batch"
	"github.com/luinbytes/dupesort/storage"
)

// Run is the outcome of one reorganization.
type Run struct {
	Folder    string
	Criterion Criterion
	Mapping   *Mapping
	Failed    []batch.Failure
}

// Moved returns the number of files that were moved.
func (r *Run) Moved() int { return r.Mapping.Len() }

// Organizer moves files into buckets and records each run in a Ledger.
type Organizer struct {
	fs          storage.DirProvider
	ledger      *Ledger
	log         zerolog.Logger
	exifDates   bool
	noExtBucket string
}

// Option configures an Organizer.
type Option func(*Organizer)

// WithLogger sets the logger for per-file failures.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Organizer) { o.log = l }
}

// WithEXIFDates makes date buckets use the EXIF capture time of JPEG and
// TIFF files when one is present.
func WithEXIFDates(enabled bool) Option {
	return func(o *Organizer) { o.exifDates = enabled }
}

// WithNoExtensionBucket renames the bucket for files without an extension.
func WithNoExtensionBucket(name string) Option {
	return func(o *Organizer) {
		if name != "" {
			o.noExtBucket = name
		}
	}
}

// New creates an Organizer. A nil ledger gets a fresh one.
func New(fs storage.DirProvider, ledger *Ledger, opts ...Option) *Organizer {
	if ledger == nil {
		ledger = NewLedger()
	}
	o := &Organizer{
		fs:          fs,
		ledger:      ledger,
		log:         zerolog.Nop(),
		noExtBucket: DefaultNoExtensionBucket,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ledger returns the ledger runs are recorded in.
func (o *Organizer) Ledger() *Ledger { return o.ledger }

// Organize moves every regular file directly inside folder into a bucket
// subfolder chosen by c. Subdirectories are left alone.
//
// An unusable folder is returned as an error and leaves the ledger as it was.
// Otherwise the run's mapping replaces whatever the ledger held, even when no
// file was moved. Once the listing succeeded the run is not cancellable:
// every file is moved or reported as failed.
func (o *Organizer) Organize(ctx context.Context, folder string, c Criterion) (*Run, error) {
	o.ledger.mu.Lock()
	defer o.ledger.mu.Unlock()

	entries, err := o.fs.ListFiles(ctx, folder, false)
	if err != nil {
		return nil, err
	}

	work := context.WithoutCancel(ctx)
	run := &Run{Folder: folder, Criterion: c, Mapping: &Mapping{}}
	for _, f := range entries {
		if f.IsDir {
			continue
		}
		if err := o.moveOne(work, run, f); err != nil {
			o.log.Warn().Err(err).Str("path", f.ID).Msg("could not organize file")
			run.Failed = append(run.Failed, batch.Failure{Path: f.ID, Err: err})
		}
	}

	o.ledger.held = run.Mapping

	o.log.Info().
		Str("folder", folder).
		Stringer("by", c).
		Int("moved", run.Moved()).
		Int("failed", len(run.Failed)).
		Msg("organize finished")

	return run, nil
}

func (o *Organizer) moveOne(ctx context.Context, run *Run, f storage.FileInfo) error {
	when := f.ModTime
	if run.Criterion == ByDate && o.exifDates {
		if t, ok := captureTime(ctx, o.fs, f); ok {
			when = t
		}
	}

	bucketDir := filepath.Join(filepath.Dir(f.ID), BucketFor(run.Criterion, f.Name, when, o.noExtBucket))
	created, err := o.fs.MakeDir(ctx, bucketDir)
	if err != nil {
		return err
	}

	dst := filepath.Join(bucketDir, f.Name)
	if err := o.fs.MoveFile(ctx, f.ID, dst); err != nil {
		if created {
			_, _ = o.fs.RemoveDirIfEmpty(ctx, bucketDir)
		}
		return err
	}

	run.Mapping.add(f.ID, dst)
	return nil
}

// Undo reverses the most recent run recorded in the ledger.
func (o *Organizer) Undo(ctx context.Context) (*UndoResult, error) {
	res, err := o.ledger.Undo(ctx, o.fs)
	if err != nil {
		return nil, err
	}

	for _, f := range res.Failed {
		o.log.Warn().Err(f.Err).Str("path", f.Path).Msg("could not restore file")
	}
	o.log.Info().
		Int("restored", len(res.Restored)).
		Int("failed", len(res.Failed)).
		Int("dirs_removed", len(res.RemovedDirs)).
		Msg("undo finished")

	return res, nil
}
