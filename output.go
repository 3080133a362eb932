package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/luinbytes/dupesort/batch"
	"github.com/luinbytes/dupesort/scanner"
	"github.com/luinbytes/dupesort/storage"
)

const progressUpdateInterval = 200 * time.Millisecond

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	keepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	removeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB454")).Bold(true)
)

// emoji returns the emoji followed by a space, or nothing with --no-emoji.
func emoji(e string) string {
	if globals.noEmoji {
		return ""
	}
	return e + " "
}

func rule(w io.Writer) {
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("=", 70)))
}

// progressPrinter draws the hashing progress bar on stderr. Report is called
// from the scanner's collector goroutine.
type progressPrinter struct {
	w     io.Writer
	start time.Time

	mu   sync.Mutex
	last time.Time
	drew bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, start: time.Now()}
}

func (p *progressPrinter) Report(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if done < total && time.Since(p.last) < progressUpdateInterval {
		return
	}
	p.last = time.Now()
	p.drew = true
	printProgress(p.w, done, total, p.start)
}

// Finish ends the progress line.
func (p *progressPrinter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drew {
		fmt.Fprintln(p.w)
	}
}

// printProgress displays a progress bar with ETA
func printProgress(w io.Writer, current, total int, startTime time.Time) {
	if total == 0 {
		return
	}
	percentage := float64(current) / float64(total)
	barWidth := 30
	filled := int(percentage * float64(barWidth))
	empty := barWidth - filled

	filledStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7D56F4")).
		Background(lipgloss.Color("#7D56F4"))
	emptyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3c3c3c")).
		Background(lipgloss.Color("#3c3c3c"))

	var bar strings.Builder
	for i := 0; i < filled; i++ {
		bar.WriteString(filledStyle.Render("█"))
	}
	for i := 0; i < empty; i++ {
		bar.WriteString(emptyStyle.Render("░"))
	}

	elapsed := time.Since(startTime).Seconds()
	eta := "..."
	if current > 0 {
		eta = formatDuration(float64(total-current) * (elapsed / float64(current)))
	}

	fmt.Fprintf(w, "\r%s%s %d/%d (%.1f%%) ETA: %s   ", emoji("🔐"), bar.String(), current, total, percentage*100, eta)
}

// formatDuration converts seconds to a human-readable duration
func formatDuration(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%.0fs", seconds)
	}
	minutes := int(seconds / 60)
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, int(seconds)%60)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// describeFailure turns a per-file error into a hint the user can act on.
func describeFailure(f batch.Failure) string {
	err := f.Err
	if err == nil {
		return fmt.Sprintf("%s: %s", f.Path, f.Reason())
	}
	errStr := err.Error()

	var collision *storage.CollisionError
	switch {
	case errors.As(err, &collision):
		return fmt.Sprintf("%s: %s already exists, left untouched.", f.Path, collision.Dst)
	case errors.Is(err, storage.ErrNotRegular):
		return fmt.Sprintf("%s: Not a regular file.", f.Path)
	case os.IsPermission(err):
		return fmt.Sprintf("%s: Permission denied. Check file ownership.", f.Path)
	case os.IsNotExist(err):
		return fmt.Sprintf("%s: File not found. It may have been deleted or moved.", f.Path)
	case strings.Contains(errStr, "too many open files"):
		return fmt.Sprintf("%s: System limit reached. Try reducing --workers or increase ulimit.", f.Path)
	case strings.Contains(errStr, "input/output error"):
		return fmt.Sprintf("%s: I/O error. The disk may be failing or the file is corrupted.", f.Path)
	default:
		return fmt.Sprintf("%s: %v", f.Path, err)
	}
}

func printFailures(w io.Writer, failures []batch.Failure) {
	for _, f := range failures {
		fmt.Fprintf(w, "  %s%s\n", emoji("⚠️"), describeFailure(f))
	}
}

// printScanSummary prints the counts of a scan.
func printScanSummary(w io.Writer, res *scanner.Result) {
	status := keepStyle.Render("completed")
	if res.Partial() {
		status = warnStyle.Render("CANCELLED (partial results)")
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%sScan of %s %s\n", emoji("📊"), res.Root, status)
	fmt.Fprintf(w, "  Files scanned:    %d (%s)\n", res.Files, humanize.IBytes(uint64(res.Bytes)))
	fmt.Fprintf(w, "  Files hashed:     %d\n", res.Hashed)
	if res.Failed > 0 {
		fmt.Fprintf(w, "  Files failed:     %d\n", res.Failed)
	}
	fmt.Fprintf(w, "  Duplicate groups: %d (%d redundant files)\n", res.Set.Len(), res.Set.Redundant())
	fmt.Fprintf(w, "  Time:             %s\n", formatDuration(res.Elapsed.Seconds()))
	if len(res.Failures) > 0 {
		printFailures(w, res.Failures)
	}
}

func printOutcome(w io.Writer, out batch.Outcome, verb string) {
	icon := emoji("✅")
	if len(out.Failed) > 0 {
		icon = emoji("⚠️")
	}
	fmt.Fprintf(w, "%s%s\n", icon, out.Summary(verb))
	printFailures(w, out.Failed)
}
