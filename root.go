package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/luinbytes/dupesort/actions"
	"github.com/luinbytes/dupesort/config"
	"github.com/luinbytes/dupesort/digest"
	"github.com/luinbytes/dupesort/logging"
	"github.com/luinbytes/dupesort/organize"
	"github.com/luinbytes/dupesort/scanner"
	"github.com/luinbytes/dupesort/session"
	"github.com/luinbytes/dupesort/storage"
)

// errSilent is returned by commands that already told the user what went
// wrong.
var errSilent = errors.New("silent")

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	workers    int
	hash       string
	chunkSize  string
	backupDir  string
	provider   string
	logLevel   string
	logFormat  string
	verbose    bool
	noEmoji    bool
}

var globals globalOptions

func newRootCommand() *cobra.Command {
	globals = globalOptions{}

	root := &cobra.Command{
		Use:   "dupesort",
		Short: "Find duplicate files and reorganize folders, reversibly",
		Long: `dupesort finds files with identical content, lets you delete, move or back up
the redundant copies, and sorts folders into buckets by date, type or name with
a one-step undo.

Running dupesort with no command on a terminal opens the interactive UI on the
current directory.

Examples:
  dupesort scan ~/Photos --sort newest
  dupesort scan ~/Downloads --keep oldest --move-to ~/Duplicates --dry-run
  dupesort organize ~/Downloads --by type --confirm
  dupesort watch ~/Downloads
  dupesort tui ~/Photos`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return cmd.Help()
			}
			return runTUI(cmd, ".", "", "")
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&globals.configPath, "config", "", "config file (default ./"+config.LocalFileName+" or the user config dir)")
	pf.IntVar(&globals.workers, "workers", scanner.DefaultWorkers, "number of hashing workers")
	pf.StringVar(&globals.hash, "hash", string(digest.SHA256), "hash algorithm: sha256, sha1 or md5")
	pf.StringVar(&globals.chunkSize, "chunk-size", "8KiB", "read size while hashing")
	pf.StringVar(&globals.backupDir, "backup-dir", actions.DefaultBackupDir(), "where backups are copied")
	pf.StringVar(&globals.provider, "provider", string(storage.ProviderLocal), "storage provider: local or google-drive")
	pf.StringVar(&globals.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&globals.logFormat, "log-format", "console", "log format: console or json")
	pf.BoolVarP(&globals.verbose, "verbose", "v", false, "verbose output (same as --log-level debug)")
	pf.BoolVar(&globals.noEmoji, "no-emoji", false, "plain text output")

	root.AddCommand(
		newScanCommand(),
		newOrganizeCommand(),
		newWatchCommand(),
		newTUICommand(),
		newConfigCommand(),
	)
	return root
}

// loadConfig reads the config file and lays explicitly set flags over it.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(globals.configPath)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(flags, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyFlags copies every flag the user set on the command line into cfg.
// Flags a command does not define are never Changed, so one pass serves
// every command.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}
	size := func(name string, dst *int64) error {
		if !changed(name) {
			return nil
		}
		n, err := config.ParseSize(flags.Lookup(name).Value.String())
		if err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
		*dst = n
		return nil
	}

	if changed("workers") {
		cfg.Scan.Workers = globals.workers
	}
	if changed("hash") {
		cfg.Scan.Hash = globals.hash
	}
	if changed("chunk-size") {
		var n int64
		if err := size("chunk-size", &n); err != nil {
			return err
		}
		cfg.Scan.ChunkSize = int(n)
	}
	if changed("provider") {
		cfg.Scan.Provider = globals.provider
	}
	if changed("backup-dir") {
		cfg.Backup.Dir = globals.backupDir
	}
	if changed("log-level") {
		cfg.Log.Level = globals.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = globals.logFormat
	}
	if globals.verbose {
		cfg.Log.Level = zerolog.DebugLevel.String()
	}

	if err := size("min-size", &cfg.Scan.MinSize); err != nil {
		return err
	}
	if err := size("max-size", &cfg.Scan.MaxSize); err != nil {
		return err
	}
	if changed("pattern") {
		cfg.Scan.Pattern = flags.Lookup("pattern").Value.String()
	}
	if changed("exif") {
		cfg.Organize.EXIFDates = flags.Lookup("exif").Value.String() == "true"
	}
	return nil
}

// app is everything a command needs, built from the merged configuration.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	fs      storage.Provider
	session *session.Session
}

func (a *app) Close() error { return a.fs.Close() }

// newApp builds the provider, the core services and the session. progress
// may be nil; logs go to logOut, or stderr when it is nil.
func newApp(ctx context.Context, flags *pflag.FlagSet, progress scanner.ProgressFunc, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	color := false
	if logOut == nil {
		logOut = os.Stderr
		color = isatty.IsTerminal(os.Stderr.Fd())
	}
	log, err := logging.New(logOut, cfg.Log.Level, cfg.Log.Format, color)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		log.Debug().Str("path", cfg.Path).Msg("loaded config")
	}

	fs, err := newProvider(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	algo, _ := digest.ParseAlgorithm(cfg.Scan.Hash)
	engine := digest.New(algo, digest.WithChunkSize(cfg.Scan.ChunkSize))

	scanOpts := []scanner.Option{
		scanner.WithWorkers(cfg.Scan.Workers),
		scanner.WithMinSize(cfg.Scan.MinSize),
		scanner.WithMaxSize(cfg.Scan.MaxSize),
		scanner.WithPattern(cfg.Scan.Pattern),
		scanner.WithLogger(log.With().Str("component", "scanner").Logger()),
	}
	if progress != nil {
		scanOpts = append(scanOpts, scanner.WithProgress(progress))
	}
	sc := scanner.New(fs, engine, scanOpts...)

	ex, err := actions.New(fs,
		actions.WithBackupDir(cfg.Backup.Dir),
		actions.WithLogger(log.With().Str("component", "actions").Logger()),
	)
	if err != nil {
		fs.Close()
		return nil, err
	}

	var org *organize.Organizer
	if dp, ok := fs.(storage.DirProvider); ok {
		org = organize.New(dp, nil,
			organize.WithLogger(log.With().Str("component", "organize").Logger()),
			organize.WithEXIFDates(cfg.Organize.EXIFDates),
			organize.WithNoExtensionBucket(cfg.Organize.NoExtensionBucket),
		)
	}

	log.Debug().
		Str("provider", fs.Name()).
		Str("hash", string(algo)).
		Int("workers", cfg.Scan.Workers).
		Str("backup_dir", ex.BackupDir()).
		Msg("session ready")

	return &app{
		cfg:     cfg,
		log:     log,
		fs:      fs,
		session: session.New(fs, sc, ex, org, log.With().Str("component", "session").Logger()),
	}, nil
}

func newProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Provider, error) {
	kind, err := storage.ParseProviderType(cfg.Scan.Provider)
	if err != nil {
		return nil, err
	}
	switch kind {
	case storage.ProviderGoogleDrive:
		return storage.NewGoogleDriveProvider(ctx, cfg.Drive.CredentialsFile, cfg.Drive.TokenFile)
	default:
		return storage.NewLocalProvider(storage.WithLogger(log.With().Str("component", "storage").Logger())), nil
	}
}
