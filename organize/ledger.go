package organize

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/luinbytes/dupesort/batch"
	"github.com/luinbytes/dupesort/storage"
)

// ErrNothingToUndo is returned by Undo when no reorganization is held.
var ErrNothingToUndo = errors.New("no previous organization to undo")

// Entry is one move made by a reorganization.
type Entry struct {
	From string
	To   string
}

// Mapping lists the moves of one run in the order they happened.
type Mapping struct {
	entries []Entry
}

func (m *Mapping) add(from, to string) {
	m.entries = append(m.entries, Entry{From: from, To: to})
}

// Entries returns a copy of the moves.
func (m *Mapping) Entries() []Entry {
	if m == nil {
		return nil
	}
	return append([]Entry(nil), m.entries...)
}

// Len returns the number of moves.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Ledger holds the mapping of the most recent reorganization so it can be
// reversed. It lives in memory only.
type Ledger struct {
	mu   sync.Mutex
	held *Mapping
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record replaces the held mapping.
func (l *Ledger) Record(m *Mapping) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = m
}

// Pending returns the number of moves an Undo would reverse.
func (l *Ledger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held.Len()
}

// UndoResult reports what an undo restored.
type UndoResult struct {
	Restored    []string // original paths put back
	Failed      []batch.Failure
	RemovedDirs []string // bucket directories removed once empty
}

// Undo moves every file of the held mapping back to where it came from, in
// recorded order, and removes bucket directories left empty. Entries that
// cannot be restored are reported and skipped. The ledger is cleared
// afterwards whatever happened, so it ignores cancellation of ctx.
func (l *Ledger) Undo(ctx context.Context, fs storage.DirProvider) (*UndoResult, error) {
	ctx = context.WithoutCancel(ctx)
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held.Len() == 0 {
		l.held = nil
		return nil, ErrNothingToUndo
	}

	res := &UndoResult{}
	for _, e := range l.held.entries {
		if _, err := fs.MakeDir(ctx, filepath.Dir(e.From)); err != nil {
			res.Failed = append(res.Failed, batch.Failure{Path: e.To, Err: err})
			continue
		}
		if err := fs.MoveFile(ctx, e.To, e.From); err != nil {
			res.Failed = append(res.Failed, batch.Failure{Path: e.To, Err: err})
			continue
		}
		res.Restored = append(res.Restored, e.From)

		bucket := filepath.Dir(e.To)
		if removed, err := fs.RemoveDirIfEmpty(ctx, bucket); err == nil && removed {
			res.RemovedDirs = append(res.RemovedDirs, bucket)
		}
	}

	l.held = nil
	return res, nil
}
