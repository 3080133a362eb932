package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/luinbytes/dupesort/scanner"
	"github.com/luinbytes/dupesort/storage"
)

func newWatchCommand() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Rescan DIR whenever files change",
		Long: `Scans DIR, then watches it and its subfolders. Each burst of file events
triggers a full rescan once no new event arrived for --debounce. Stop with
Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "quiet period before a rescan")
	return cmd
}

func runWatch(cmd *cobra.Command, dir string, debounce time.Duration) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := newApp(ctx, cmd.Flags(), nil, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, ok := a.fs.(*storage.LocalProvider); !ok {
		return fmt.Errorf("watch needs the local provider, not %s", a.fs.Name())
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("cannot resolve directory: %w", err)
	}
	if info, err := os.Stat(absDir); err != nil || !info.IsDir() {
		return &storage.PathError{Path: absDir, Reason: "is not a directory", Err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDir(watcher, absDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", absDir, err)
	}

	rescan := func() {
		res, err := a.session.Scan(ctx, absDir)
		if err != nil {
			if !errors.Is(err, scanner.ErrScanInProgress) {
				a.log.Error().Err(err).Msg("rescan failed")
			}
			return
		}
		printWatchUpdate(out, res)
	}

	fmt.Fprintf(out, "%sWatching %s (debounce %s). Press Ctrl-C to stop.\n", emoji("👀"), absDir, debounce)
	rescan()

	debounceChan := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(out, "\n%sWatch mode stopped.\n", emoji("👋"))
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) {
				continue
			}

			// New directories join the watch.
			if event.Has(fsnotify.Create) {
				if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
					if err := addWatchDir(watcher, event.Name); err != nil {
						a.log.Warn().Err(err).Str("path", event.Name).Msg("cannot watch new directory")
					} else {
						a.log.Debug().Str("path", event.Name).Msg("now watching")
					}
				}
			}

			a.log.Debug().Str("event", event.Op.String()).Str("path", event.Name).Msg("file event")
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				select {
				case debounceChan <- struct{}{}:
				default:
				}
			})

		case <-debounceChan:
			rescan()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// addWatchDir adds a directory and its subdirectories to the watcher
func addWatchDir(watcher *fsnotify.Watcher, dir string) error {
	if err := watcher.Add(dir); err != nil {
		return err
	}

	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if d.IsDir() && path != dir {
			if err := watcher.Add(path); err != nil {
				return filepath.SkipDir
			}
		}
		return nil
	})
}

func printWatchUpdate(w io.Writer, res *scanner.Result) {
	line := fmt.Sprintf("[%s] %d files, %d duplicate groups (%d redundant files)",
		time.Now().Format("15:04:05"), res.Files, res.Set.Len(), res.Set.Redundant())
	if res.Failed > 0 {
		line += fmt.Sprintf(", %d unreadable", res.Failed)
	}
	if res.Partial() {
		line += " " + warnStyle.Render("(cancelled)")
	}
	fmt.Fprintf(w, "%s%s\n", emoji("🔄"), line)
}
