package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if c.Scan.Workers != 10 || c.Scan.Hash != "sha256" || c.Scan.ChunkSize != 8192 {
		t.Errorf("defaults = %+v", c.Scan)
	}
	if filepath.Base(c.Backup.Dir) != "dupesort-backup" {
		t.Errorf("backup dir = %q", c.Backup.Dir)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[scan]
workers = 4
hash = md5
chunk_size = 64KiB
min_size = 1K
pattern = *.jpg

[backup]
dir = /srv/backup

[organize]
no_extension_bucket = misc
exif_dates = true

[log]
level = debug
format = json
`)

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if c.Path != path {
		t.Errorf("Path = %q", c.Path)
	}
	if c.Scan.Workers != 4 || c.Scan.Hash != "md5" || c.Scan.ChunkSize != 64*1024 {
		t.Errorf("scan = %+v", c.Scan)
	}
	if c.Scan.MinSize != 1000 || c.Scan.MaxSize != 0 || c.Scan.Pattern != "*.jpg" {
		t.Errorf("filters = %+v", c.Scan)
	}
	if c.Backup.Dir != "/srv/backup" {
		t.Errorf("backup = %+v", c.Backup)
	}
	if c.Organize.NoExtensionBucket != "misc" || !c.Organize.EXIFDates {
		t.Errorf("organize = %+v", c.Organize)
	}
	if c.Log.Level != "debug" || c.Log.Format != "json" {
		t.Errorf("log = %+v", c.Log)
	}
	// Untouched sections keep their defaults.
	if c.Drive.TokenFile != Default().Drive.TokenFile {
		t.Errorf("drive = %+v", c.Drive)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"workers not int", "[scan]\nworkers = many\n", "workers"},
		{"zero workers", "[scan]\nworkers = 0\n", "at least 1"},
		{"bad hash", "[scan]\nhash = crc32\n", "crc32"},
		{"bad size", "[scan]\nmax_size = huge\n", "max_size"},
		{"chunk too large", "[scan]\nchunk_size = 4GiB\n", "at most 64 MiB"},
		{"max below min", "[scan]\nmin_size = 10MB\nmax_size = 1MB\n", "below min size"},
		{"bad format", "[log]\nformat = xml\n", "console or json"},
		{"bad provider", "[scan]\nprovider = ftp\n", "ftp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadFile() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadExplicitMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.ini")); err == nil {
		t.Error("Load() of a missing explicit file succeeded")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	c := Default()
	c.Scan.Workers = 3
	c.Scan.MinSize = 2048
	c.Organize.EXIFDates = true

	path := filepath.Join(t.TempDir(), "nested", "config.ini")
	if err := c.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got.Scan.Workers != 3 || got.Scan.MinSize != 2048 || got.Scan.ChunkSize != c.Scan.ChunkSize || !got.Organize.EXIFDates {
		t.Errorf("round trip = %+v", got.Scan)
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"0":      0,
		"512":    512,
		"8KiB":   8192,
		"1 MB":   1000000,
		"1.5MiB": 1572864,
	}
	for in, want := range tests {
		got, err := ParseSize(in)
		if err != nil || got != want {
			t.Errorf("ParseSize(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
}
