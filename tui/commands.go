package tui

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luinbytes/dupesort/batch"
	"github.com/luinbytes/dupesort/dupes"
	"github.com/luinbytes/dupesort/organize"
	"github.com/luinbytes/dupesort/scanner"
)

// Progress carries scan progress from the scanner's collector to the view.
// Pass its Report method to scanner.WithProgress.
type Progress struct {
	done  atomic.Int64
	total atomic.Int64
}

// Report records progress. It matches scanner.ProgressFunc.
func (p *Progress) Report(done, total int) {
	p.total.Store(int64(total))
	p.done.Store(int64(done))
}

// Reset clears the counters before a new scan.
func (p *Progress) Reset() {
	p.done.Store(0)
	p.total.Store(0)
}

// Load returns the latest counters.
func (p *Progress) Load() (done, total int) {
	return int(p.done.Load()), int(p.total.Load())
}

// Fraction is done/total, or 0 before the total is known.
func (p *Progress) Fraction() float64 {
	done, total := p.Load()
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

type scanDoneMsg struct {
	id  int
	res *scanner.Result
	err error
}

type groupLoadedMsg struct {
	index   int
	records []dupes.FileRecord
	missing []string
	err     error
}

type actionDoneMsg struct {
	verb string
	out  batch.Outcome
}

type organizeDoneMsg struct {
	run *organize.Run
	err error
}

type undoDoneMsg struct {
	res *organize.UndoResult
	err error
}

type previewMsg struct {
	path string
	text string
}

func scanCmd(ctx context.Context, b Backend, root string, id int) tea.Cmd {
	return func() tea.Msg {
		res, err := b.Scan(ctx, root)
		return scanDoneMsg{id: id, res: res, err: err}
	}
}

func loadGroupCmd(ctx context.Context, b Backend, index int, g dupes.Group, c dupes.Criterion) tea.Cmd {
	return func() tea.Msg {
		records, missing, err := b.SortedView(ctx, g.Fingerprint, c)
		return groupLoadedMsg{index: index, records: records, missing: missing, err: err}
	}
}

func deleteCmd(ctx context.Context, b Backend, paths []string) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{verb: "deleted", out: b.Delete(ctx, paths)}
	}
}

func moveCmd(ctx context.Context, b Backend, paths []string, dest string) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{verb: "moved", out: b.Move(ctx, paths, dest)}
	}
}

func backupCmd(ctx context.Context, b Backend, paths []string) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{verb: "backed up", out: b.Backup(ctx, paths)}
	}
}

func organizeCmd(ctx context.Context, b Backend, folder string, c organize.Criterion) tea.Cmd {
	return func() tea.Msg {
		run, err := b.Organize(ctx, folder, c)
		return organizeDoneMsg{run: run, err: err}
	}
}

func undoCmd(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		res, err := b.Undo(ctx)
		return undoDoneMsg{res: res, err: err}
	}
}

func previewCmd(ctx context.Context, b Backend, path string) tea.Cmd {
	return func() tea.Msg {
		p, err := b.Preview(ctx, path)
		if err != nil {
			return previewMsg{path: path, text: "Error previewing file:\n" + err.Error()}
		}
		return previewMsg{path: path, text: p.String()}
	}
}
