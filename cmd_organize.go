package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luinbytes/dupesort/organize"
)

type organizeOptions struct {
	by      string
	confirm bool
	exif    bool
}

func newOrganizeCommand() *cobra.Command {
	var opts organizeOptions

	cmd := &cobra.Command{
		Use:   "organize DIR",
		Short: "Sort the files directly inside DIR into subfolders",
		Long: `Moves every file directly inside DIR into a subfolder named after its
modification month (2024-03), its extension (PDF, NO_EXTENSION) or the first
letter of its name (A, #). Subfolders are left alone and nothing is
overwritten.

With --confirm you are asked whether to keep the result; answering no moves
every file back and removes the folders that were created.

Examples:
  dupesort organize ~/Downloads --by type
  dupesort organize ~/Pictures --by date --exif --confirm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrganize(cmd, args[0], &opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.by, "by", "type", "bucket by date, type or name")
	f.BoolVar(&opts.confirm, "confirm", false, "ask before keeping the result and undo on no")
	f.BoolVar(&opts.exif, "exif", false, "use the EXIF capture date of JPEG and TIFF files when bucketing by date")
	return cmd
}

func runOrganize(cmd *cobra.Command, dir string, opts *organizeOptions) error {
	by, err := organize.ParseCriterion(opts.by)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := newApp(ctx, cmd.Flags(), nil, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.session.Organize(context.WithoutCancel(ctx), dir, by)
	if err != nil {
		return err
	}
	printRun(out, run)

	if !opts.confirm || run.Moved() == 0 {
		return nil
	}

	keep, err := confirm(cmd.InOrStdin(), out, "Keep this organization? [y/N]: ")
	if err != nil {
		return err
	}
	if keep {
		fmt.Fprintf(out, "%sKept.\n", emoji("✅"))
		return nil
	}

	res, err := a.session.Undo(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	printUndo(out, res)
	return nil
}

func printRun(w io.Writer, run *organize.Run) {
	fmt.Fprintf(w, "%s%s\n", emoji("📁"), headingStyle.Render(fmt.Sprintf("Organized %s by %s", run.Folder, run.Criterion)))
	for _, e := range run.Mapping.Entries() {
		fmt.Fprintf(w, "  %s %s %s\n", e.From, dimStyle.Render("->"), e.To)
	}
	fmt.Fprintf(w, "%s%d moved", emoji("📊"), run.Moved())
	if len(run.Failed) > 0 {
		fmt.Fprintf(w, ", %d failed", len(run.Failed))
	}
	fmt.Fprintln(w)
	printFailures(w, run.Failed)
}

func printUndo(w io.Writer, res *organize.UndoResult) {
	fmt.Fprintf(w, "%sRestored %d files to original locations", emoji("↩️"), len(res.Restored))
	if len(res.Failed) > 0 {
		fmt.Fprintf(w, ", %d failed", len(res.Failed))
	}
	fmt.Fprintln(w)
	for _, d := range res.RemovedDirs {
		fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("removed"), d)
	}
	printFailures(w, res.Failed)
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		return false, sc.Err()
	}
	answer := strings.ToLower(strings.TrimSpace(sc.Text()))
	return answer == "y" || answer == "yes", nil
}
