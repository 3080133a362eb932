package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/luinbytes/dupesort/batch"
	"github.com/luinbytes/dupesort/digest"
	"github.com/luinbytes/dupesort/dupes"
	"github.com/luinbytes/dupesort/organize"
	"github.com/luinbytes/dupesort/preview"
	"github.com/luinbytes/dupesort/scanner"
	"github.com/luinbytes/dupesort/storage"
)

type fakeBackend struct {
	groups    map[digest.Fingerprint][]dupes.FileRecord
	order     []digest.Fingerprint
	status    scanner.Status
	scans     int
	deleted   []string
	moved     []string
	movedTo   string
	undoErr   error
	organized organize.Criterion
}

func newFakeBackend() *fakeBackend {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &fakeBackend{
		groups: map[digest.Fingerprint][]dupes.FileRecord{
			"aaaa": {
				{Path: "/r/a", Name: "a", Size: 5, ModTime: t0},
				{Path: "/r/b", Name: "b", Size: 5, ModTime: t0.Add(time.Hour)},
			},
			"bbbb": {
				{Path: "/r/x", Name: "x", Size: 9, ModTime: t0},
				{Path: "/r/y", Name: "y", Size: 9, ModTime: t0},
				{Path: "/r/z", Name: "z", Size: 9, ModTime: t0},
			},
		},
		order: []digest.Fingerprint{"aaaa", "bbbb"},
	}
}

func (f *fakeBackend) Scan(ctx context.Context, root string) (*scanner.Result, error) {
	f.scans++
	b := dupes.NewBuilder()
	files := 0
	for _, fp := range f.order {
		for _, r := range f.groups[fp] {
			b.Add(fp, r.Path)
			files++
		}
	}
	return &scanner.Result{Root: root, Status: f.status, Set: b.Build(), Files: files, Hashed: files}, nil
}

func (f *fakeBackend) SortedView(ctx context.Context, fp digest.Fingerprint, c dupes.Criterion) ([]dupes.FileRecord, []string, error) {
	records := append([]dupes.FileRecord(nil), f.groups[fp]...)
	if c == dupes.NameDesc {
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
	}
	return records, nil, nil
}

func (f *fakeBackend) Delete(ctx context.Context, paths []string) batch.Outcome {
	f.deleted = append(f.deleted, paths...)
	return batch.Outcome{Succeeded: paths}
}

func (f *fakeBackend) Move(ctx context.Context, paths []string, destDir string) batch.Outcome {
	f.moved = append(f.moved, paths...)
	f.movedTo = destDir
	out := batch.Outcome{Succeeded: paths[1:]}
	out.Fail(paths[0], &storage.CollisionError{Src: paths[0], Dst: destDir})
	return out
}

func (f *fakeBackend) Backup(ctx context.Context, paths []string) batch.Outcome {
	return batch.Outcome{Succeeded: paths}
}

func (f *fakeBackend) Organize(ctx context.Context, folder string, c organize.Criterion) (*organize.Run, error) {
	f.organized = c
	return &organize.Run{Folder: folder, Criterion: c, Mapping: &organize.Mapping{}}, nil
}

func (f *fakeBackend) Undo(ctx context.Context) (*organize.UndoResult, error) {
	if f.undoErr != nil {
		return nil, f.undoErr
	}
	return &organize.UndoResult{Restored: []string{"/r/a"}}, nil
}

func (f *fakeBackend) Preview(ctx context.Context, path string) (preview.Preview, error) {
	return preview.Preview{Kind: preview.Text, Text: "contents of " + path}, nil
}

func (f *fakeBackend) BackupDir() string { return "/backup" }

// run executes cmd and feeds every resulting message back into m until no
// commands remain. Spinner ticks and quit messages are dropped.
func run(m tea.Model, cmd tea.Cmd) tea.Model {
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case nil, spinner.TickMsg, tea.QuitMsg:
		return m
	case tea.BatchMsg:
		for _, c := range msg {
			m = run(m, c)
		}
		return m
	default:
		next, cmd := m.Update(msg)
		return run(next, cmd)
	}
}

func press(m tea.Model, k string) tea.Model {
	var msg tea.KeyMsg
	switch k {
	case "space":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, cmd := m.Update(msg)
	return run(next, cmd)
}

func started(t *testing.T, b Backend, opts Options) Model {
	t.Helper()
	if opts.Root == "" {
		opts.Root = "/r"
	}
	m := New(context.Background(), b, opts)
	got := run(m, m.Init()).(Model)
	if got.scanning {
		t.Fatal("scan did not finish")
	}
	return got
}

func TestInitialScanLoadsFirstGroup(t *testing.T) {
	fb := newFakeBackend()
	m := started(t, fb, Options{})

	if len(m.groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(m.groups))
	}
	if len(m.records) != 2 || m.records[0].Path != "/r/a" {
		t.Errorf("records = %+v", m.records)
	}
	if !strings.Contains(m.statusMsg, "Scan complete") {
		t.Errorf("status = %q", m.statusMsg)
	}
	view := m.View()
	for _, want := range []string{"Duplicate Group 1/2", "aaaa", "a"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestPartialScanIsFlagged(t *testing.T) {
	fb := newFakeBackend()
	fb.status = scanner.StatusCancelled
	m := started(t, fb, Options{})

	if !strings.Contains(m.statusMsg, "partial results") {
		t.Errorf("status = %q", m.statusMsg)
	}
	if !strings.Contains(m.View(), "partial scan") {
		t.Error("View() does not mark the partial scan")
	}
}

func TestStaleScanIgnored(t *testing.T) {
	m := started(t, newFakeBackend(), Options{})
	next, _ := m.Update(scanDoneMsg{id: m.scanID - 1, err: errors.New("old")})
	if next.(Model).err != nil {
		t.Error("stale scan result was applied")
	}
}

func TestNavigationAndSelection(t *testing.T) {
	m := started(t, newFakeBackend(), Options{})

	var tm tea.Model = m
	tm = press(tm, "space")
	tm = press(tm, "right")
	tm = press(tm, "down")
	tm = press(tm, "space")
	m = tm.(Model)

	if m.currentGroup != 1 || len(m.records) != 3 {
		t.Fatalf("group %d with %d records", m.currentGroup, len(m.records))
	}
	got := m.selectedPaths()
	if strings.Join(got, ",") != "/r/a,/r/y" {
		t.Errorf("selectedPaths() = %v", got)
	}

	m = press(m, "a").(Model)
	if len(m.selectedPaths()) != 4 {
		t.Errorf("toggle group selected %v", m.selectedPaths())
	}
	m = press(m, "a").(Model)
	if strings.Join(m.selectedPaths(), ",") != "/r/a" {
		t.Errorf("second toggle left %v", m.selectedPaths())
	}
}

func TestSortCycleReloadsGroup(t *testing.T) {
	m := started(t, newFakeBackend(), Options{Sort: dupes.NameAsc})
	m = press(m, "s").(Model)
	if m.criterion != dupes.NameDesc {
		t.Fatalf("criterion = %v", m.criterion)
	}
	if m.records[0].Path != "/r/b" {
		t.Errorf("records not reloaded: %+v", m.records)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	fb := newFakeBackend()
	m := started(t, fb, Options{})

	m = press(m, "space").(Model)
	m = press(m, "d").(Model)
	if !m.confirming {
		t.Fatal("delete did not ask for confirmation")
	}
	m = press(m, "n").(Model)
	if len(fb.deleted) != 0 || m.confirming {
		t.Fatalf("declined delete ran: %v", fb.deleted)
	}

	m = press(m, "d").(Model)
	m = press(m, "y").(Model)
	if strings.Join(fb.deleted, ",") != "/r/a" {
		t.Errorf("deleted = %v", fb.deleted)
	}
	if fb.scans != 2 {
		t.Errorf("scans = %d, want a rescan after delete", fb.scans)
	}
	if !strings.HasPrefix(m.statusMsg, "1 deleted") {
		t.Errorf("status = %q", m.statusMsg)
	}
	if len(m.selected) != 0 {
		t.Error("selection survived the rescan")
	}
}

func TestDeleteWithoutSelection(t *testing.T) {
	m := started(t, newFakeBackend(), Options{})
	m = press(m, "d").(Model)
	if m.confirming || m.statusMsg != "No files selected." {
		t.Errorf("confirming = %v, status = %q", m.confirming, m.statusMsg)
	}
}

func TestMoveReportsCollisions(t *testing.T) {
	fb := newFakeBackend()

	m := started(t, fb, Options{})
	m = press(m, "a").(Model)
	m = press(m, "m").(Model)
	if len(fb.moved) != 0 || !strings.Contains(m.statusMsg, "--move-to") {
		t.Fatalf("move without destination: moved %v, status %q", fb.moved, m.statusMsg)
	}

	m = started(t, fb, Options{MoveTo: "/dest"})
	m = press(m, "a").(Model)
	m = press(m, "m").(Model)
	if fb.movedTo != "/dest" || len(fb.moved) != 2 {
		t.Fatalf("moved %v to %q", fb.moved, fb.movedTo)
	}
	if !strings.HasPrefix(m.statusMsg, "1 moved, 1 failed (1 already existed)") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestOrganizeAndUndo(t *testing.T) {
	fb := newFakeBackend()
	m := started(t, fb, Options{})

	m = press(m, "2").(Model)
	if fb.organized != organize.ByType {
		t.Errorf("organized by %v", fb.organized)
	}
	if !strings.Contains(m.statusMsg, "Organized 0 files by type") {
		t.Errorf("status = %q", m.statusMsg)
	}

	m = press(m, "u").(Model)
	if !strings.HasPrefix(m.statusMsg, "Restored 1 files") {
		t.Errorf("status = %q", m.statusMsg)
	}

	fb.undoErr = organize.ErrNothingToUndo
	m = press(m, "u").(Model)
	if m.statusMsg != "No previous organization to undo." || m.err != nil {
		t.Errorf("status = %q, err = %v", m.statusMsg, m.err)
	}
}

func TestPreviewFollowsCursor(t *testing.T) {
	m := started(t, newFakeBackend(), Options{})
	m = press(m, "p").(Model)
	if m.previewText != "contents of /r/a" {
		t.Errorf("preview = %q", m.previewText)
	}
	m = press(m, "down").(Model)
	if m.previewText != "contents of /r/b" {
		t.Errorf("preview after move = %q", m.previewText)
	}
	if !strings.Contains(m.View(), "contents of /r/b") {
		t.Error("View() does not show the preview")
	}
}

func TestKeysIgnoredWhileScanning(t *testing.T) {
	fb := newFakeBackend()
	m := New(context.Background(), fb, Options{Root: "/r"})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd != nil || fb.scans != 0 {
		t.Error("rescan started during a scan")
	}

	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if next.(Model).scanCtx.Err() == nil {
		t.Error("cancel key did not cancel the scan context")
	}
}

func TestProgressFraction(t *testing.T) {
	var p Progress
	if p.Fraction() != 0 {
		t.Error("Fraction() before total != 0")
	}
	p.Report(1, 4)
	if p.Fraction() != 0.25 {
		t.Errorf("Fraction() = %v", p.Fraction())
	}
	p.Reset()
	if d, total := p.Load(); d != 0 || total != 0 {
		t.Errorf("Load() after Reset = %d, %d", d, total)
	}
}
