// Package scanner finds duplicate files under a directory tree.
//
// Enumeration is sequential. Hashing runs on a bounded pool of workers that
// report back over a channel to a single collector, which is the only
// goroutine touching the duplicate set under construction.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/luinbytes/dupesort/batch"
	"github.com/luinbytes/dupesort/digest"
	"github.com/luinbytes/dupesort/dupes"
	"github.com/luinbytes/dupesort/storage"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 10

// ErrScanInProgress is returned when Scan is called while another scan on the
// same Scanner has not finished.
var ErrScanInProgress = errors.New("scan already in progress")

// Status tells a finished scan from one that was cut short.
type Status int

const (
	StatusCompleted Status = iota
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the outcome of one scan.
type Result struct {
	Root     string
	Status   Status
	Set      *dupes.Set
	Files    int   // regular files that passed the filters
	Bytes    int64 // their combined size
	Hashed   int
	Failed   int
	Failures []batch.Failure
	Elapsed  time.Duration
}

// Partial reports whether the set covers only part of the tree.
func (r *Result) Partial() bool {
	return r.Status == StatusCancelled
}

// ProgressFunc is called by the collector after each file, with the number of
// files handled so far and the total to handle.
type ProgressFunc func(done, total int)

// Scanner hashes every regular file under a root and groups equal digests.
// One Scanner runs at most one scan at a time.
type Scanner struct {
	fs       storage.Provider
	engine   *digest.Engine
	workers  int
	minSize  int64
	maxSize  int64
	pattern  string
	log      zerolog.Logger
	progress ProgressFunc

	running atomic.Bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers sets the number of concurrent digests. Values below 1 keep the
// default.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMinSize skips files smaller than n bytes.
func WithMinSize(n int64) Option {
	return func(s *Scanner) { s.minSize = n }
}

// WithMaxSize skips files larger than n bytes. Zero means unlimited.
func WithMaxSize(n int64) Option {
	return func(s *Scanner) { s.maxSize = n }
}

// WithPattern keeps only files whose base name matches the glob.
func WithPattern(glob string) Option {
	return func(s *Scanner) { s.pattern = glob }
}

// WithLogger sets the logger for per-file failures and scan summaries.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scanner) { s.log = l }
}

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Scanner) { s.progress = fn }
}

// New creates a Scanner reading through fs and hashing with engine.
func New(fs storage.Provider, engine *digest.Engine, opts ...Option) *Scanner {
	s := &Scanner{
		fs:      fs,
		engine:  engine,
		workers: DefaultWorkers,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workers returns the pool size.
func (s *Scanner) Workers() int { return s.workers }

// Running reports whether a scan is underway.
func (s *Scanner) Running() bool { return s.running.Load() }

type outcome struct {
	path string
	fp   digest.Fingerprint
	err  error
}

// Scan enumerates root recursively and returns the duplicate groups found.
//
// An unusable root is returned as an error matching storage.ErrInvalidPath
// before any hashing starts. Cancelling ctx is not an error: Scan waits for
// in-flight digests, discards their results and returns what was collected so
// far with Status set to StatusCancelled.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)

	if s.pattern != "" {
		if _, err := filepath.Match(s.pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", s.pattern, err)
		}
	}

	start := time.Now()
	res := &Result{Root: root, Status: StatusCompleted}

	s.log.Debug().Str("root", root).Int("workers", s.workers).Msg("scan started")

	entries, err := s.fs.ListFiles(ctx, root, true)
	if err != nil {
		if ctx.Err() != nil {
			res.Status = StatusCancelled
			res.Set = dupes.NewBuilder().Build()
			res.Elapsed = time.Since(start)
			return res, nil
		}
		return nil, err
	}

	files := s.filter(entries)
	res.Files = len(files)
	for _, f := range files {
		res.Bytes += f.Size
	}

	results := make(chan outcome, s.workers)
	go func() {
		var g errgroup.Group
		g.SetLimit(s.workers)
		for _, f := range files {
			if ctx.Err() != nil {
				break
			}
			id := f.ID
			g.Go(func() error {
				fp, err := s.engine.Digest(ctx, s.fs, id)
				results <- outcome{path: id, fp: fp, err: err}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	builder := dupes.NewBuilder()
	done := 0
	for o := range results {
		if ctx.Err() != nil {
			// Drain so no worker blocks on send.
			continue
		}
		done++
		if o.err != nil {
			res.Failed++
			res.Failures = append(res.Failures, batch.Failure{Path: o.path, Err: o.err})
			s.log.Warn().Err(o.err).Str("path", o.path).Msg("digest failed")
		} else {
			res.Hashed++
			builder.Add(o.fp, o.path)
		}
		if s.progress != nil {
			s.progress(done, len(files))
		}
	}

	if done < len(files) {
		res.Status = StatusCancelled
	}
	res.Set = builder.Build()
	res.Elapsed = time.Since(start)

	s.log.Info().
		Str("root", root).
		Stringer("status", res.Status).
		Int("files", res.Files).
		Int("hashed", res.Hashed).
		Int("failed", res.Failed).
		Int("groups", res.Set.Len()).
		Dur("elapsed", res.Elapsed).
		Msg("scan finished")

	return res, nil
}

func (s *Scanner) filter(entries []storage.FileInfo) []storage.FileInfo {
	files := make([]storage.FileInfo, 0, len(entries))
	for _, f := range entries {
		if f.IsDir {
			continue
		}
		if f.Size < s.minSize {
			continue
		}
		if s.maxSize > 0 && f.Size > s.maxSize {
			continue
		}
		if s.pattern != "" {
			if ok, _ := filepath.Match(s.pattern, f.Name); !ok {
				continue
			}
		}
		files = append(files, f)
	}
	return files
}
