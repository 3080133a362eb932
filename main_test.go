package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/luinbytes/dupesort/batch"
	"github.com/luinbytes/dupesort/config"
	"github.com/luinbytes/dupesort/storage"
)

// runCLI executes the root command with an empty config file so the user's
// own settings never leak into a test.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cfgFile := filepath.Join(t.TempDir(), "empty.ini")
	if err := os.WriteFile(cfgFile, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args,
		"--config", cfgFile,
		"--backup-dir", filepath.Join(t.TempDir(), "backup"),
		"--no-emoji",
		"--log-level", "error",
	))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeTree creates files under dir; later entries get later mtimes.
func writeTree(t *testing.T, dir string, files ...[2]string) {
	t.Helper()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, f := range files {
		path := filepath.Join(dir, f[0])
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(f[1]), 0o644); err != nil {
			t.Fatal(err)
		}
		mtime := base.Add(time.Duration(i) * time.Hour)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		rel, _ := filepath.Rel(dir, path)
		if d.IsDir() {
			rel += "/"
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(out)
	return out
}

func TestScanCommandListsGroupsAndExportsCSV(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, [2]string{"a.txt", "hello"}, [2]string{"b.txt", "hello"}, [2]string{"c.txt", "world"})
	csvPath := filepath.Join(t.TempDir(), "dupes.csv")

	out, err := runCLI(t, "", "scan", dir, "--export-csv", csvPath)
	if err != nil {
		t.Fatalf("scan error = %v\n%s", err, out)
	}
	for _, want := range []string{"[1] Hash: 2cf24dba5fb0a30e", "a.txt", "b.txt", "Duplicate groups: 1 (1 redundant files)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "c.txt") {
		t.Errorf("unique file listed:\n%s", out)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][0] != "Hash" || rows[0][1] != "File Path" {
		t.Errorf("csv rows = %v", rows)
	}
}

func TestScanCommandExportsPDF(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, [2]string{"a.txt", "hello"}, [2]string{"b.txt", "hello"})
	pdfPath := filepath.Join(t.TempDir(), "dupes.pdf")

	out, err := runCLI(t, "", "scan", dir, "--export-pdf", pdfPath)
	if err != nil {
		t.Fatalf("scan error = %v\n%s", err, out)
	}
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("export is not a PDF, starts with %q", data[:min(8, len(data))])
	}
}

func TestScanCommandKeepAndAct(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantFiles []string
		wantOut   string
	}{
		{
			name:      "delete keeps oldest",
			args:      []string{"--keep", "oldest", "--delete"},
			wantFiles: []string{"a.txt", "c.txt"},
			wantOut:   "1 deleted",
		},
		{
			name:      "delete keeps newest",
			args:      []string{"--keep", "newest", "--delete"},
			wantFiles: []string{"b.txt", "c.txt"},
			wantOut:   "1 deleted",
		},
		{
			name:      "dry run changes nothing",
			args:      []string{"--keep", "oldest", "--delete", "--dry-run"},
			wantFiles: []string{"a.txt", "b.txt", "c.txt"},
			wantOut:   "Dry run: 1 files would be affected",
		},
		{
			name:      "backup copies",
			args:      []string{"--backup"},
			wantFiles: []string{"a.txt", "b.txt", "c.txt"},
			wantOut:   "1 backed up to",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeTree(t, dir, [2]string{"a.txt", "hello"}, [2]string{"b.txt", "hello"}, [2]string{"c.txt", "world"})

			out, err := runCLI(t, "", append([]string{"scan", dir}, tt.args...)...)
			if err != nil {
				t.Fatalf("scan error = %v\n%s", err, out)
			}
			if got := listDir(t, dir); strings.Join(got, ",") != strings.Join(tt.wantFiles, ",") {
				t.Errorf("files = %v, want %v", got, tt.wantFiles)
			}
			if !strings.Contains(out, tt.wantOut) {
				t.Errorf("output missing %q:\n%s", tt.wantOut, out)
			}
		})
	}
}

func TestScanCommandMoveCollision(t *testing.T) {
	dir := t.TempDir()
	dest := t.TempDir()
	writeTree(t, dir,
		[2]string{"one/a.txt", "same"},
		[2]string{"two/a.txt", "same"},
		[2]string{"three/b.txt", "same"},
	)
	writeTree(t, dest, [2]string{"a.txt", "already here"})

	out, err := runCLI(t, "", "scan", dir, "--keep", "oldest", "--move-to", dest)
	if err != nil {
		t.Fatalf("scan error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 moved, 1 failed (1 already existed)") {
		t.Errorf("output:\n%s", out)
	}
	got, _ := os.ReadFile(filepath.Join(dest, "a.txt"))
	if string(got) != "already here" {
		t.Errorf("destination overwritten: %q", got)
	}
	if strings.Join(listDir(t, dest), ",") != "a.txt,b.txt" {
		t.Errorf("dest = %v", listDir(t, dest))
	}
}

func TestScanCommandRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"two actions", []string{"scan", dir, "--delete", "--backup"}},
		{"bad sort", []string{"scan", dir, "--sort", "random"}},
		{"bad hash", []string{"scan", dir, "--hash", "crc32"}},
		{"bad size", []string{"scan", dir, "--min-size", "lots"}},
		{"missing dir", []string{"scan", filepath.Join(dir, "nope")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, "", tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}

	_, err := runCLI(t, "", "scan", filepath.Join(dir, "nope"))
	if !errors.Is(err, storage.ErrInvalidPath) {
		t.Errorf("missing dir error = %v, want ErrInvalidPath", err)
	}
}

func TestOrganizeCommand(t *testing.T) {
	t.Run("kept", func(t *testing.T) {
		dir := t.TempDir()
		writeTree(t, dir, [2]string{"x.pdf", "x"}, [2]string{"y.pdf", "y"}, [2]string{"z.txt", "z"})

		out, err := runCLI(t, "y\n", "organize", dir, "--by", "type", "--confirm")
		if err != nil {
			t.Fatalf("organize error = %v\n%s", err, out)
		}
		want := "PDF/,PDF/x.pdf,PDF/y.pdf,TXT/,TXT/z.txt"
		if got := strings.Join(listDir(t, dir), ","); got != want {
			t.Errorf("tree = %s, want %s", got, want)
		}
	})

	t.Run("declined is undone", func(t *testing.T) {
		dir := t.TempDir()
		writeTree(t, dir, [2]string{"x.pdf", "x"}, [2]string{"y.pdf", "y"}, [2]string{"z.txt", "z"})

		out, err := runCLI(t, "n\n", "organize", dir, "--by", "type", "--confirm")
		if err != nil {
			t.Fatalf("organize error = %v\n%s", err, out)
		}
		if got := strings.Join(listDir(t, dir), ","); got != "x.pdf,y.pdf,z.txt" {
			t.Errorf("tree = %s", got)
		}
		if !strings.Contains(out, "Restored 3 files") {
			t.Errorf("output:\n%s", out)
		}
	})

	t.Run("bad criterion", func(t *testing.T) {
		if _, err := runCLI(t, "", "organize", t.TempDir(), "--by", "colour"); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestApplyFlags(t *testing.T) {
	cmd := newRootCommand()
	scan, _, err := cmd.Find([]string{"scan"})
	if err != nil {
		t.Fatal(err)
	}
	if err := scan.ParseFlags([]string{"--workers", "3", "--min-size", "1KiB", "--pattern", "*.jpg", "--chunk-size", "64KiB"}); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Scan.Hash = "md5" // from a file; no flag overrides it
	if err := applyFlags(scan.Flags(), cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.Scan.Workers != 3 || cfg.Scan.MinSize != 1024 || cfg.Scan.Pattern != "*.jpg" || cfg.Scan.ChunkSize != 64*1024 {
		t.Errorf("scan config = %+v", cfg.Scan)
	}
	if cfg.Scan.Hash != "md5" {
		t.Errorf("unset flag overrode file value: hash = %s", cfg.Scan.Hash)
	}
}

func TestConfigInitWritesLoadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "dupesort.ini")
	if out, err := runCLI(t, "", "config", "init", path, "--workers", "4"); err != nil {
		t.Fatalf("config init error = %v\n%s", err, out)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scan.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Scan.Workers)
	}

	if _, err := runCLI(t, "", "config", "init", path); err == nil {
		t.Error("second init without --force succeeded")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0s"},
		{59, "59s"},
		{61, "1m 1s"},
		{3600, "1h 0m"},
		{3725, "1h 2m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.seconds); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestDescribeFailure(t *testing.T) {
	tests := []struct {
		name string
		f    batch.Failure
		want string
	}{
		{"collision", batch.Failure{Path: "/a", Err: &storage.CollisionError{Src: "/a", Dst: "/d/a"}}, "/d/a already exists"},
		{"missing", batch.Failure{Path: "/a", Err: os.ErrNotExist}, "File not found"},
		{"permission", batch.Failure{Path: "/a", Err: os.ErrPermission}, "Permission denied"},
		{"nil", batch.Failure{Path: "/a"}, "unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeFailure(tt.f); !strings.Contains(got, tt.want) {
				t.Errorf("describeFailure() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func BenchmarkScanCommand(b *testing.B) {
	dir := b.TempDir()
	for i := 0; i < 200; i++ {
		content := []byte(strings.Repeat("x", 4096+i%20))
		if err := os.WriteFile(filepath.Join(dir, "f"+strconv.Itoa(i)), content, 0o644); err != nil {
			b.Fatal(err)
		}
	}
	cfgFile := filepath.Join(b.TempDir(), "empty.ini")
	if err := os.WriteFile(cfgFile, nil, 0o644); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cmd := newRootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"scan", dir, "--config", cfgFile, "--log-level", "error", "--backup-dir", filepath.Join(dir, ".backup")})
		if err := cmd.Execute(); err != nil {
			b.Fatal(err)
		}
	}
}
