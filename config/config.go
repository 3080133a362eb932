// Package config loads dupesort settings from an INI file.
//
// Settings come from, in increasing priority: built-in defaults, the first
// config file found, and command-line flags (merged by the caller).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-ini/ini"
	"github.com/rs/zerolog"

	"github.com/luinbytes/dupesort/actions"
	"github.com/luinbytes/dupesort/digest"
	"github.com/luinbytes/dupesort/organize"
	"github.com/luinbytes/dupesort/scanner"
	"github.com/luinbytes/dupesort/storage"
)

// LocalFileName is looked for in the working directory.
const LocalFileName = ".dupesort.ini"

// ScanConfig holds the [scan] section.
type ScanConfig struct {
	Provider  string
	Workers   int
	Hash      string
	ChunkSize int
	MinSize   int64
	MaxSize   int64 // 0 = unlimited
	Pattern   string
}

// BackupConfig holds the [backup] section.
type BackupConfig struct {
	Dir string
}

// OrganizeConfig holds the [organize] section.
type OrganizeConfig struct {
	NoExtensionBucket string
	EXIFDates         bool
}

// LogConfig holds the [log] section.
type LogConfig struct {
	Level  string
	Format string // console or json
}

// DriveConfig holds the [drive] section.
type DriveConfig struct {
	CredentialsFile string
	TokenFile       string
}

// Config is the full set of file-backed settings.
type Config struct {
	Path string // file the settings were read from, empty for defaults

	Scan     ScanConfig
	Backup   BackupConfig
	Organize OrganizeConfig
	Log      LogConfig
	Drive    DriveConfig
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Provider:  string(storage.ProviderLocal),
			Workers:   scanner.DefaultWorkers,
			Hash:      string(digest.SHA256),
			ChunkSize: digest.DefaultChunkSize,
		},
		Backup: BackupConfig{
			Dir: actions.DefaultBackupDir(),
		},
		Organize: OrganizeConfig{
			NoExtensionBucket: organize.DefaultNoExtensionBucket,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Drive: DriveConfig{
			CredentialsFile: "~/.config/dupesort/credentials.json",
			TokenFile:       "~/.config/dupesort/token.json",
		},
	}
}

// SearchPaths lists the files Load tries when no path is given.
func SearchPaths() []string {
	paths := []string{LocalFileName}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "dupesort", "config.ini"))
	}
	return paths
}

// Load reads explicit when it is set, failing if it does not exist. Otherwise
// the first existing file of SearchPaths is read, or defaults are returned.
func Load(explicit string) (*Config, error) {
	if explicit != "" {
		return LoadFile(explicit)
	}
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return Default(), nil
}

// LoadFile reads one INI file over the defaults.
func LoadFile(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	c := Default()
	c.Path = path
	if err := c.apply(f); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) apply(f *ini.File) error {
	if f.HasSection("scan") {
		section := f.Section("scan")
		if section.HasKey("provider") {
			c.Scan.Provider = section.Key("provider").String()
		}
		if section.HasKey("workers") {
			workers, err := section.Key("workers").Int()
			if err != nil {
				return fmt.Errorf("[scan] workers: %w", err)
			}
			c.Scan.Workers = workers
		}
		if section.HasKey("hash") {
			c.Scan.Hash = section.Key("hash").String()
		}
		if section.HasKey("chunk_size") {
			n, err := ParseSize(section.Key("chunk_size").String())
			if err != nil {
				return fmt.Errorf("[scan] chunk_size: %w", err)
			}
			c.Scan.ChunkSize = int(n)
		}
		if section.HasKey("min_size") {
			n, err := ParseSize(section.Key("min_size").String())
			if err != nil {
				return fmt.Errorf("[scan] min_size: %w", err)
			}
			c.Scan.MinSize = n
		}
		if section.HasKey("max_size") {
			n, err := ParseSize(section.Key("max_size").String())
			if err != nil {
				return fmt.Errorf("[scan] max_size: %w", err)
			}
			c.Scan.MaxSize = n
		}
		if section.HasKey("pattern") {
			c.Scan.Pattern = section.Key("pattern").String()
		}
	}

	if f.HasSection("backup") {
		section := f.Section("backup")
		if section.HasKey("dir") {
			c.Backup.Dir = section.Key("dir").String()
		}
	}

	if f.HasSection("organize") {
		section := f.Section("organize")
		if section.HasKey("no_extension_bucket") {
			c.Organize.NoExtensionBucket = section.Key("no_extension_bucket").String()
		}
		if section.HasKey("exif_dates") {
			enabled, err := section.Key("exif_dates").Bool()
			if err != nil {
				return fmt.Errorf("[organize] exif_dates: %w", err)
			}
			c.Organize.EXIFDates = enabled
		}
	}

	if f.HasSection("log") {
		section := f.Section("log")
		if section.HasKey("level") {
			c.Log.Level = section.Key("level").String()
		}
		if section.HasKey("format") {
			c.Log.Format = section.Key("format").String()
		}
	}

	if f.HasSection("drive") {
		section := f.Section("drive")
		if section.HasKey("credentials_file") {
			c.Drive.CredentialsFile = section.Key("credentials_file").String()
		}
		if section.HasKey("token_file") {
			c.Drive.TokenFile = section.Key("token_file").String()
		}
	}

	return c.Validate()
}

// Validate checks values that flags and files can both get wrong.
func (c *Config) Validate() error {
	var errs []error
	if c.Scan.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Scan.Workers))
	}
	if c.Scan.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.Scan.ChunkSize))
	} else if c.Scan.ChunkSize > digest.MaxChunkSize {
		errs = append(errs, fmt.Errorf("chunk size must be at most %s, got %s",
			humanize.IBytes(digest.MaxChunkSize), humanize.IBytes(uint64(c.Scan.ChunkSize))))
	}
	if c.Scan.MaxSize > 0 && c.Scan.MaxSize < c.Scan.MinSize {
		errs = append(errs, fmt.Errorf("max size %d is below min size %d", c.Scan.MaxSize, c.Scan.MinSize))
	}
	if _, err := digest.ParseAlgorithm(c.Scan.Hash); err != nil {
		errs = append(errs, err)
	}
	if _, err := storage.ParseProviderType(c.Scan.Provider); err != nil {
		errs = append(errs, err)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log format must be console or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ParseSize accepts plain byte counts and human sizes such as 8KiB or 10MB.
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// Save writes c to path in INI form.
func (c *Config) Save(path string) error {
	f := ini.Empty()

	scan := f.Section("scan")
	scan.Key("provider").SetValue(c.Scan.Provider)
	scan.Key("workers").SetValue(fmt.Sprintf("%d", c.Scan.Workers))
	scan.Key("hash").SetValue(c.Scan.Hash)
	scan.Key("chunk_size").SetValue(humanize.IBytes(uint64(c.Scan.ChunkSize)))
	scan.Key("min_size").SetValue(humanize.IBytes(uint64(c.Scan.MinSize)))
	scan.Key("max_size").SetValue(humanize.IBytes(uint64(c.Scan.MaxSize)))
	scan.Key("pattern").SetValue(c.Scan.Pattern)

	f.Section("backup").Key("dir").SetValue(c.Backup.Dir)

	org := f.Section("organize")
	org.Key("no_extension_bucket").SetValue(c.Organize.NoExtensionBucket)
	org.Key("exif_dates").SetValue(fmt.Sprintf("%t", c.Organize.EXIFDates))

	logSection := f.Section("log")
	logSection.Key("level").SetValue(c.Log.Level)
	logSection.Key("format").SetValue(c.Log.Format)

	drive := f.Section("drive")
	drive.Key("credentials_file").SetValue(c.Drive.CredentialsFile)
	drive.Key("token_file").SetValue(c.Drive.TokenFile)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return f.SaveTo(path)
}
