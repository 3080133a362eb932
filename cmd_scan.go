package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/luinbytes/dupesort/dupes"
	"github.com/luinbytes/dupesort/report"
	"github.com/luinbytes/dupesort/scanner"
	"github.com/luinbytes/dupesort/session"
)

type scanOptions struct {
	minSize    string
	maxSize    string
	pattern    string
	sort       string
	exportCSV  string
	exportJSON string
	exportPDF  string
	keep       string
	delete     bool
	moveTo     string
	backup     bool
	dryRun     bool
}

// action names the batch operation requested on the command line, or "".
func (o *scanOptions) action() (string, error) {
	var set []string
	if o.delete {
		set = append(set, "--delete")
	}
	if o.moveTo != "" {
		set = append(set, "--move-to")
	}
	if o.backup {
		set = append(set, "--backup")
	}
	if len(set) > 1 {
		return "", fmt.Errorf("%s and %s cannot be combined", set[0], set[1])
	}
	if len(set) == 0 {
		return "", nil
	}
	return set[0], nil
}

func newScanCommand() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan DIR",
		Short: "Find duplicate files by content",
		Long: `Hashes every regular file under DIR and lists the groups of files with
identical content. Symlinks are never followed.

With --keep and one of --delete, --move-to or --backup, the first file of each
group (as ordered by --keep) is kept and the action is applied to the others.
Press Ctrl-C to stop hashing early; the partial result is reported as cancelled
and no action is taken on it.

Examples:
  dupesort scan ~/Photos
  dupesort scan ~/Photos --sort largest --export-csv dupes.csv
  dupesort scan ~/Downloads --keep oldest --delete --dry-run
  dupesort scan ~/Downloads --keep newest --move-to ~/Duplicates`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args[0], &opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.minSize, "min-size", "0", "skip files smaller than this (e.g. 1KiB)")
	f.StringVar(&opts.maxSize, "max-size", "0", "skip files larger than this, 0 for no limit")
	f.StringVar(&opts.pattern, "pattern", "", "only hash files whose name matches this glob (e.g. *.jpg)")
	f.StringVar(&opts.sort, "sort", "oldest", "order within groups: "+criteriaHelp)
	f.StringVar(&opts.exportCSV, "export-csv", "", "write the groups to this CSV file")
	f.StringVar(&opts.exportJSON, "export-json", "", "write a JSON report to this file")
	f.StringVar(&opts.exportPDF, "export-pdf", "", "write the groups to this PDF file")
	f.StringVar(&opts.keep, "keep", "oldest", "file to keep in each group: "+criteriaHelp)
	f.BoolVar(&opts.delete, "delete", false, "delete all but the kept file of each group")
	f.StringVar(&opts.moveTo, "move-to", "", "move all but the kept file of each group into this folder")
	f.BoolVar(&opts.backup, "backup", false, "copy all but the kept file of each group to the backup folder")
	f.BoolVar(&opts.dryRun, "dry-run", false, "show what would be done without changing anything")
	return cmd
}

const criteriaHelp = "oldest, newest, smallest, largest, name or name-desc"

func runScan(cmd *cobra.Command, dir string, opts *scanOptions) error {
	action, err := opts.action()
	if err != nil {
		return err
	}
	order, err := dupes.ParseCriterion(opts.sort)
	if err != nil {
		return err
	}
	keep, err := dupes.ParseCriterion(opts.keep)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var progress *progressPrinter
	var onProgress scanner.ProgressFunc
	if isatty.IsTerminal(os.Stderr.Fd()) {
		progress = newProgressPrinter(os.Stderr)
		onProgress = progress.Report
	}

	a, err := newApp(ctx, cmd.Flags(), onProgress, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(out, "%sdupesort v%s - scanning %s\n", emoji("🔍"), version, dir)
	res, err := a.session.Scan(ctx, dir)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return err
	}

	// Reporting on a cancelled scan must still be able to stat files.
	post := context.WithoutCancel(ctx)

	var plans []session.Plan
	if action == "" {
		printGroups(post, out, a.session, res, order)
	} else {
		plans, err = a.session.KeepPlan(post, keep)
		if err != nil {
			return err
		}
		printPlans(out, plans, keep)
	}

	if err := exportResults(post, a, res, opts); err != nil {
		return err
	}

	printScanSummary(out, res)

	if res.Partial() {
		if action != "" {
			fmt.Fprintf(out, "%s\n", warnStyle.Render("Scan was cancelled: no files were changed."))
		}
		return errSilent
	}
	if action == "" {
		return nil
	}

	var paths []string
	for _, p := range plans {
		paths = append(paths, p.RemovePaths()...)
	}
	if len(paths) == 0 {
		return nil
	}
	if opts.dryRun {
		fmt.Fprintf(out, "\n%sDry run: %d files would be affected. Remove --dry-run to apply.\n", emoji("💡"), len(paths))
		return nil
	}

	fmt.Fprintln(out)
	switch action {
	case "--delete":
		printOutcome(out, a.session.Delete(post, paths), "deleted")
	case "--move-to":
		printOutcome(out, a.session.Move(post, paths, opts.moveTo), "moved")
	case "--backup":
		printOutcome(out, a.session.Backup(post, paths), "backed up to "+a.session.BackupDir())
	}
	return nil
}

func printGroups(ctx context.Context, w io.Writer, s *session.Session, res *scanner.Result, order dupes.Criterion) {
	if res.Set.Len() == 0 {
		fmt.Fprintf(w, "\n%sNo duplicates found!\n", emoji("✅"))
		return
	}

	fmt.Fprintf(w, "\n%s%s\n", emoji("👯"), headingStyle.Render("Duplicate Files ("+order.Label()+")"))
	rule(w)

	var reclaimable int64
	for i, g := range res.Set.Groups() {
		records, missing, err := s.SortedView(ctx, g.Fingerprint, order)
		if err != nil {
			continue
		}
		var size int64
		if len(records) > 0 {
			size = records[0].Size
			reclaimable += size * int64(len(records)-1)
		}

		fmt.Fprintf(w, "\n[%d] Hash: %s...\n", i+1, g.Fingerprint.Short())
		fmt.Fprintf(w, "    Size: %s, %d files\n", humanize.IBytes(uint64(size)), len(g.Paths))
		for _, r := range records {
			fmt.Fprintf(w, "    %s %s\n", r.Path, dimStyle.Render("(modified: "+r.ModTime.Format("2006-01-02 15:04:05")+")"))
		}
		for _, p := range missing {
			fmt.Fprintf(w, "    %s %s\n", p, dimStyle.Render("(missing)"))
		}
	}

	fmt.Fprintln(w)
	rule(w)
	fmt.Fprintf(w, "%sSummary: %d duplicate files, %s of space can be freed\n",
		emoji("📊"), res.Set.Redundant(), humanize.IBytes(uint64(reclaimable)))
}

func printPlans(w io.Writer, plans []session.Plan, keep dupes.Criterion) {
	if len(plans) == 0 {
		fmt.Fprintf(w, "\n%sNo duplicates found!\n", emoji("✅"))
		return
	}

	fmt.Fprintf(w, "\n%s%s\n", emoji("👯"), headingStyle.Render("Duplicate Files (keeping "+keep.Label()+")"))
	rule(w)

	var removed int
	var reclaimable int64
	for i, p := range plans {
		removed += len(p.Remove)
		reclaimable += p.Keep.Size * int64(len(p.Remove))

		fmt.Fprintf(w, "\n[%d] Hash: %s...\n", i+1, p.Group.Fingerprint.Short())
		fmt.Fprintf(w, "    Size: %s\n", humanize.IBytes(uint64(p.Keep.Size)))
		fmt.Fprintf(w, "    Files: %d (keeping 1, removing %d)\n", len(p.Remove)+1, len(p.Remove))
		fmt.Fprintf(w, "    %s %s (modified: %s)\n", keepStyle.Render(emoji("✓")+"KEEP  "), p.Keep.Path, p.Keep.ModTime.Format("2006-01-02 15:04:05"))
		for _, r := range p.Remove {
			fmt.Fprintf(w, "    %s %s (modified: %s)\n", removeStyle.Render(emoji("✗")+"REMOVE"), r.Path, r.ModTime.Format("2006-01-02 15:04:05"))
		}
		for _, m := range p.Missing {
			fmt.Fprintf(w, "    %s %s\n", m, dimStyle.Render("(missing)"))
		}
	}

	fmt.Fprintln(w)
	rule(w)
	fmt.Fprintf(w, "%sSummary: %d duplicate files, %s of space can be freed\n",
		emoji("📊"), removed, humanize.IBytes(uint64(reclaimable)))
}

func exportResults(ctx context.Context, a *app, res *scanner.Result, opts *scanOptions) error {
	if opts.exportCSV != "" {
		if err := writeFile(opts.exportCSV, func(w io.Writer) error {
			return report.WriteCSV(w, res.Set)
		}); err != nil {
			return fmt.Errorf("failed to export CSV: %w", err)
		}
		a.log.Info().Str("path", opts.exportCSV).Msg("CSV exported")
	}
	if opts.exportJSON != "" {
		r := report.Build(ctx, a.fs, res, time.Now())
		if err := writeFile(opts.exportJSON, func(w io.Writer) error {
			return report.WriteJSON(w, r)
		}); err != nil {
			return fmt.Errorf("failed to export report: %w", err)
		}
		a.log.Info().Str("path", opts.exportJSON).Msg("report exported")
	}
	if opts.exportPDF != "" {
		if err := writeFile(opts.exportPDF, func(w io.Writer) error {
			return report.WritePDF(w, res.Set)
		}); err != nil {
			return fmt.Errorf("failed to export PDF: %w", err)
		}
		a.log.Info().Str("path", opts.exportPDF).Msg("PDF exported")
	}
	return nil
}

// writeFile creates path and hands it to write, keeping the first error.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
