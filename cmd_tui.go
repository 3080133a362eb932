package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/luinbytes/dupesort/dupes"
	"github.com/luinbytes/dupesort/tui"
)

// tuiLogFile receives log output while the TUI owns the terminal.
const tuiLogFile = "dupesort-debug.log"

func newTUICommand() *cobra.Command {
	var moveTo, sort string

	cmd := &cobra.Command{
		Use:   "tui [DIR]",
		Short: "Browse and clean up duplicates interactively",
		Long: `Scans DIR (default: the current directory) and opens an interactive
browser over the duplicate groups. Press ? inside for all keys.

Log output is discarded while the UI runs, or written to ` + tuiLogFile + `
with --verbose.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runTUI(cmd, dir, moveTo, sort)
		},
	}
	cmd.Flags().StringVar(&moveTo, "move-to", "", "destination folder for the move key")
	cmd.Flags().StringVar(&sort, "sort", "oldest", "initial order within groups: "+criteriaHelp)
	return cmd
}

func runTUI(cmd *cobra.Command, dir, moveTo, sort string) error {
	order, err := dupes.ParseCriterion(sort)
	if err != nil {
		return err
	}

	var logOut io.Writer = io.Discard
	if globals.verbose {
		f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}

	progress := &tui.Progress{}
	a, err := newApp(cmd.Context(), cmd.Flags(), progress.Report, logOut)
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(cmd.Context(), a.session, tui.Options{
		Root:     dir,
		MoveTo:   moveTo,
		Sort:     order,
		Progress: progress,
	})
}
