// Package session ties the scanner, the file actions and the reorganizer to
// one storage provider and keeps the latest scan result for the UI and CLI.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/luinbytes/dupesort/actions"
	"github.com/luinbytes/dupesort/batch"
	"github.com/luinbytes/dupesort/digest"
	"github.com/luinbytes/dupesort/dupes"
	"github.com/luinbytes/dupesort/organize"
	"github.com/luinbytes/dupesort/preview"
	"github.com/luinbytes/dupesort/scanner"
	"github.com/luinbytes/dupesort/storage"
)

var (
	// ErrNoScan is returned by views over a scan before any scan finished.
	ErrNoScan = errors.New("no scan results yet")

	// ErrOrganizeUnsupported is returned when the provider cannot manage
	// directories.
	ErrOrganizeUnsupported = errors.New("provider cannot reorganize folders")
)

// Session is safe for concurrent use. Scan results are replaced wholesale.
type Session struct {
	fs        storage.Provider
	scanner   *scanner.Scanner
	executor  *actions.Executor
	organizer *organize.Organizer
	log       zerolog.Logger

	mu     sync.RWMutex
	result *scanner.Result
}

// New assembles a session. organizer may be nil for providers that do not
// implement storage.DirProvider.
func New(fs storage.Provider, sc *scanner.Scanner, ex *actions.Executor, org *organize.Organizer, log zerolog.Logger) *Session {
	return &Session{
		fs:        fs,
		scanner:   sc,
		executor:  ex,
		organizer: org,
		log:       log,
	}
}

// Provider returns the storage provider.
func (s *Session) Provider() storage.Provider { return s.fs }

// BackupDir returns the executor's backup root.
func (s *Session) BackupDir() string { return s.executor.BackupDir() }

// CanOrganize reports whether Organize and Undo are available.
func (s *Session) CanOrganize() bool { return s.organizer != nil }

// Scan runs a scan and, when it returns a result, makes it the current one.
// Cancelled scans replace the previous result too; check Result.Partial.
func (s *Session) Scan(ctx context.Context, root string) (*scanner.Result, error) {
	res, err := s.scanner.Scan(ctx, root)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.result = res
	s.mu.Unlock()
	return res, nil
}

// Result returns the latest scan result, or nil.
func (s *Session) Result() *scanner.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// SortedView returns the files of group fp ordered by c.
func (s *Session) SortedView(ctx context.Context, fp digest.Fingerprint, c dupes.Criterion) ([]dupes.FileRecord, []string, error) {
	res := s.Result()
	if res == nil {
		return nil, nil, ErrNoScan
	}
	g, ok := res.Set.Group(fp)
	if !ok {
		return nil, nil, fmt.Errorf("no duplicate group %s", fp.Short())
	}
	records, missing := dupes.SortedView(ctx, s.fs, g, c)
	return records, missing, nil
}

// Delete removes paths. Paths that are gone already are reported as failures.
func (s *Session) Delete(ctx context.Context, paths []string) batch.Outcome {
	present, out := s.precheck(ctx, paths)
	out.Merge(s.executor.Delete(ctx, present))
	return out
}

// Move moves paths into destDir.
func (s *Session) Move(ctx context.Context, paths []string, destDir string) batch.Outcome {
	present, out := s.precheck(ctx, paths)
	out.Merge(s.executor.Move(ctx, present, destDir))
	return out
}

// Backup copies paths into the backup root.
func (s *Session) Backup(ctx context.Context, paths []string) batch.Outcome {
	present, out := s.precheck(ctx, paths)
	out.Merge(s.executor.Backup(ctx, present))
	return out
}

func (s *Session) precheck(ctx context.Context, paths []string) ([]string, batch.Outcome) {
	present, missing := dupes.Select(ctx, s.fs, paths)
	for _, f := range missing {
		s.log.Warn().Err(f.Err).Str("path", f.Path).Msg("selected file no longer exists")
	}
	return present, batch.Outcome{Failed: missing}
}

// Organize sorts folder into buckets by c.
func (s *Session) Organize(ctx context.Context, folder string, c organize.Criterion) (*organize.Run, error) {
	if s.organizer == nil {
		return nil, ErrOrganizeUnsupported
	}
	return s.organizer.Organize(ctx, folder, c)
}

// Undo reverses the latest reorganization.
func (s *Session) Undo(ctx context.Context) (*organize.UndoResult, error) {
	if s.organizer == nil {
		return nil, ErrOrganizeUnsupported
	}
	return s.organizer.Undo(ctx)
}

// PendingUndo returns how many moves Undo would reverse.
func (s *Session) PendingUndo() int {
	if s.organizer == nil {
		return 0
	}
	return s.organizer.Ledger().Pending()
}

// Preview describes the content of path.
func (s *Session) Preview(ctx context.Context, path string) (preview.Preview, error) {
	info, err := s.fs.Stat(ctx, path)
	if err != nil {
		return preview.Preview{}, err
	}
	return preview.Describe(ctx, s.fs, info)
}

// Plan is the keep decision for one group.
type Plan struct {
	Group   dupes.Group
	Keep    dupes.FileRecord
	Remove  []dupes.FileRecord
	Missing []string
}

// RemovePaths returns the paths of Remove.
func (p Plan) RemovePaths() []string {
	out := make([]string, len(p.Remove))
	for i, r := range p.Remove {
		out[i] = r.Path
	}
	return out
}

// KeepPlan keeps the first file of every group as ordered by c and marks the
// rest for removal. Groups with fewer than two surviving files are skipped.
func (s *Session) KeepPlan(ctx context.Context, c dupes.Criterion) ([]Plan, error) {
	res := s.Result()
	if res == nil {
		return nil, ErrNoScan
	}

	var plans []Plan
	for _, g := range res.Set.Groups() {
		records, missing := dupes.SortedView(ctx, s.fs, g, c)
		if len(records) < 2 {
			continue
		}
		plans = append(plans, Plan{
			Group:   g,
			Keep:    records[0],
			Remove:  records[1:],
			Missing: missing,
		})
	}
	return plans, nil
}
