package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/luinbytes/dupesort/actions"
	"github.com/luinbytes/dupesort/digest"
	"github.com/luinbytes/dupesort/dupes"
	"github.com/luinbytes/dupesort/organize"
	"github.com/luinbytes/dupesort/scanner"
	"github.com/luinbytes/dupesort/storage"
)

func newSession(t *testing.T, files map[string]string, withOrganizer bool) (afero.Fs, *Session) {
	t.Helper()
	fs := afero.NewMemMapFs()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	i := 0
	for _, path := range sortedKeys(files) {
		if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := afero.WriteFile(fs, path, []byte(files[path]), 0o644); err != nil {
			t.Fatal(err)
		}
		mt := base.Add(time.Duration(i) * time.Hour)
		_ = fs.Chtimes(path, mt, mt)
		i++
	}

	p := storage.NewLocalProvider(storage.WithFs(fs))
	ex, err := actions.New(p, actions.WithBackupFs(fs), actions.WithBackupDir("/backup"))
	if err != nil {
		t.Fatal(err)
	}
	var org *organize.Organizer
	if withOrganizer {
		org = organize.New(p, nil)
	}
	sc := scanner.New(p, digest.New(digest.SHA256), scanner.WithWorkers(4))
	return fs, New(p, sc, ex, org, zerolog.Nop())
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestScanThenKeepPlanAndDelete(t *testing.T) {
	fs, s := newSession(t, map[string]string{
		"/d/a.txt": "hello",
		"/d/b.txt": "hello",
		"/d/c.txt": "world",
	}, true)
	ctx := context.Background()

	if _, err := s.KeepPlan(ctx, dupes.MtimeAsc); !errors.Is(err, ErrNoScan) {
		t.Errorf("KeepPlan() before scan error = %v", err)
	}

	res, err := s.Scan(ctx, "/d")
	if err != nil {
		t.Fatal(err)
	}
	if s.Result() != res || res.Set.Len() != 1 {
		t.Fatalf("Result() = %+v", s.Result())
	}

	plans, err := s.KeepPlan(ctx, dupes.MtimeAsc)
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != 1 || plans[0].Keep.Path != "/d/a.txt" {
		t.Fatalf("plans = %+v, want a.txt kept", plans)
	}
	remove := plans[0].RemovePaths()
	if len(remove) != 1 || remove[0] != "/d/b.txt" {
		t.Fatalf("RemovePaths() = %v", remove)
	}

	out := s.Delete(ctx, append(remove, "/d/vanished.txt"))
	if len(out.Succeeded) != 1 || len(out.Failed) != 1 {
		t.Fatalf("Delete() = %+v", out)
	}
	if out.Failed[0].Path != "/d/vanished.txt" || !errors.Is(out.Failed[0].Err, os.ErrNotExist) {
		t.Errorf("Failed = %+v", out.Failed)
	}
	if ok, _ := afero.Exists(fs, "/d/b.txt"); ok {
		t.Error("b.txt not deleted")
	}

	// The stored set is not touched by actions; the view reports the gap.
	fp := res.Set.Groups()[0].Fingerprint
	records, missing, err := s.SortedView(ctx, fp, dupes.NameAsc)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || len(missing) != 1 || missing[0] != "/d/b.txt" {
		t.Errorf("SortedView() = %v, missing %v", records, missing)
	}
}

func TestMoveAndBackup(t *testing.T) {
	fs, s := newSession(t, map[string]string{
		"/d/a.txt":    "x",
		"/d/b.txt":    "x",
		"/dest/a.txt": "taken",
	}, true)
	ctx := context.Background()

	out := s.Backup(ctx, []string{"/d/a.txt"})
	if len(out.Succeeded) != 1 {
		t.Errorf("Backup() = %+v", out)
	}
	if ok, _ := afero.Exists(fs, "/backup/a.txt"); !ok {
		t.Error("backup copy missing")
	}

	out = s.Move(ctx, []string{"/d/a.txt", "/d/b.txt"}, "/dest")
	if out.Summary("moved") != "1 moved, 1 failed (1 already existed)" {
		t.Errorf("Move() summary = %q", out.Summary("moved"))
	}
}

func TestOrganizeUndoThroughSession(t *testing.T) {
	_, s := newSession(t, map[string]string{"/f/x.pdf": "1", "/f/y.txt": "2"}, true)
	ctx := context.Background()

	run, err := s.Organize(ctx, "/f", organize.ByType)
	if err != nil || run.Moved() != 2 {
		t.Fatalf("Organize() = %+v, %v", run, err)
	}
	if s.PendingUndo() != 2 {
		t.Errorf("PendingUndo() = %d", s.PendingUndo())
	}
	res, err := s.Undo(ctx)
	if err != nil || len(res.Restored) != 2 {
		t.Fatalf("Undo() = %+v, %v", res, err)
	}
}

func TestOrganizeUnsupported(t *testing.T) {
	_, s := newSession(t, map[string]string{"/f/x": "1"}, false)
	if s.CanOrganize() {
		t.Error("CanOrganize() = true without organizer")
	}
	if _, err := s.Organize(context.Background(), "/f", organize.ByName); !errors.Is(err, ErrOrganizeUnsupported) {
		t.Errorf("Organize() error = %v", err)
	}
	if _, err := s.Undo(context.Background()); !errors.Is(err, ErrOrganizeUnsupported) {
		t.Errorf("Undo() error = %v", err)
	}
}

func TestPreview(t *testing.T) {
	_, s := newSession(t, map[string]string{"/d/readme.md": "# title"}, false)
	p, err := s.Preview(context.Background(), "/d/readme.md")
	if err != nil || p.String() != "# title" {
		t.Errorf("Preview() = %q, %v", p.String(), err)
	}
}
