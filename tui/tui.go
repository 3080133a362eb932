// Package tui provides an interactive terminal UI for browsing duplicate
// groups and acting on them.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/luinbytes/dupesort/batch"
	"github.com/luinbytes/dupesort/digest"
	"github.com/luinbytes/dupesort/dupes"
	"github.com/luinbytes/dupesort/organize"
	"github.com/luinbytes/dupesort/preview"
	"github.com/luinbytes/dupesort/scanner"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2)

	itemStyle = lipgloss.NewStyle().PaddingLeft(4)

	selectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(lipgloss.Color("#7D56F4")).
				Bold(true)

	checkedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	uncheckedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB454")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(1)
)

// Backend is what the UI drives. *session.Session implements it.
type Backend interface {
	Scan(ctx context.Context, root string) (*scanner.Result, error)
	SortedView(ctx context.Context, fp digest.Fingerprint, c dupes.Criterion) ([]dupes.FileRecord, []string, error)
	Delete(ctx context.Context, paths []string) batch.Outcome
	Move(ctx context.Context, paths []string, destDir string) batch.Outcome
	Backup(ctx context.Context, paths []string) batch.Outcome
	Organize(ctx context.Context, folder string, c organize.Criterion) (*organize.Run, error)
	Undo(ctx context.Context) (*organize.UndoResult, error)
	Preview(ctx context.Context, path string) (preview.Preview, error)
	BackupDir() string
}

// Options configures a Model.
type Options struct {
	Root     string
	MoveTo   string // destination for the move key; empty disables it
	Sort     dupes.Criterion
	Progress *Progress
}

// Model is the TUI state
type Model struct {
	backend Backend
	opts    Options
	ctx     context.Context

	scanning   bool
	scanID     int
	scanCtx    context.Context
	cancelScan context.CancelFunc
	scanStart  time.Time

	busy       bool
	confirming bool

	result       *scanner.Result
	groups       []dupes.Group
	currentGroup int
	cursor       int
	records      []dupes.FileRecord
	missing      []string
	selected     map[string]bool
	criterion    dupes.Criterion

	showHelp    bool
	showPreview bool
	previewPath string
	previewText string
	statusMsg   string
	err         error
	quitting    bool

	width   int
	height  int
	keys    keyMap
	help    help.Model
	spinner spinner.Model
	bar     progress.Model
}

// New creates a new TUI model. The first scan starts from Init.
func New(ctx context.Context, b Backend, opts Options) Model {
	if opts.Progress == nil {
		opts.Progress = &Progress{}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	scanCtx, cancel := context.WithCancel(ctx)

	return Model{
		backend:    b,
		opts:       opts,
		ctx:        ctx,
		scanning:   true,
		scanID:     1,
		scanCtx:    scanCtx,
		cancelScan: cancel,
		scanStart:  time.Now(),
		selected:   make(map[string]bool),
		criterion:  opts.Sort,
		keys:       keys,
		help:       help.New(),
		spinner:    sp,
		bar:        progress.New(progress.WithDefaultGradient()),
	}
}

// Init starts the first scan.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, scanCmd(m.scanCtx, m.backend, m.opts.Root, m.scanID))
}

func (m *Model) startScan() tea.Cmd {
	if m.cancelScan != nil {
		m.cancelScan()
	}
	m.scanID++
	m.scanCtx, m.cancelScan = context.WithCancel(m.ctx)
	m.scanning = true
	m.scanStart = time.Now()
	m.opts.Progress.Reset()
	return tea.Batch(m.spinner.Tick, scanCmd(m.scanCtx, m.backend, m.opts.Root, m.scanID))
}

// Update handles messages and user input
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.bar.Width = min(msg.Width-4, 60)

	case spinner.TickMsg:
		if m.scanning || m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case scanDoneMsg:
		return m.handleScanDone(msg)

	case groupLoadedMsg:
		if msg.index != m.currentGroup {
			break
		}
		if msg.err != nil {
			m.err = msg.err
			break
		}
		m.records = msg.records
		m.missing = msg.missing
		if m.cursor >= len(m.records) {
			m.cursor = max(len(m.records)-1, 0)
		}
		return m, m.refreshPreview()

	case actionDoneMsg:
		m.busy = false
		m.statusMsg = msg.out.Summary(msg.verb)
		if len(msg.out.Failed) > 0 {
			m.statusMsg += " · first failure: " + msg.out.Failed[0].Reason()
		}
		return m, m.startScan()

	case organizeDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Organized %d files by %s", msg.run.Moved(), msg.run.Criterion)
		if n := len(msg.run.Failed); n > 0 {
			m.statusMsg += fmt.Sprintf(", %d failed", n)
		}
		m.statusMsg += " · u to undo"
		return m, m.startScan()

	case undoDoneMsg:
		m.busy = false
		if errors.Is(msg.err, organize.ErrNothingToUndo) {
			m.statusMsg = "No previous organization to undo."
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Restored %d files to original locations", len(msg.res.Restored))
		if n := len(msg.res.Failed); n > 0 {
			m.statusMsg += fmt.Sprintf(", %d failed", n)
		}
		return m, m.startScan()

	case previewMsg:
		if msg.path == m.previewPath {
			m.previewText = msg.text
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleScanDone(msg scanDoneMsg) (tea.Model, tea.Cmd) {
	if msg.id != m.scanID {
		return m, nil
	}
	m.scanning = false
	m.cancelScan()

	if msg.err != nil {
		m.err = msg.err
		return m, nil
	}
	m.err = nil
	m.result = msg.res
	m.groups = msg.res.Set.Groups()
	m.selected = make(map[string]bool)
	m.records = nil
	m.missing = nil
	m.cursor = 0
	if m.currentGroup >= len(m.groups) {
		m.currentGroup = max(len(m.groups)-1, 0)
	}

	if msg.res.Partial() {
		m.statusMsg = fmt.Sprintf("Scan cancelled · partial results: %d groups from %d of %d files",
			len(m.groups), msg.res.Hashed+msg.res.Failed, msg.res.Files)
	} else if m.statusMsg == "" {
		m.statusMsg = fmt.Sprintf("Scan complete · %d groups of duplicates", len(m.groups))
	}

	return m, m.loadGroup()
}

func (m *Model) loadGroup() tea.Cmd {
	if m.currentGroup >= len(m.groups) {
		return nil
	}
	return loadGroupCmd(m.ctx, m.backend, m.currentGroup, m.groups[m.currentGroup], m.criterion)
}

func (m *Model) refreshPreview() tea.Cmd {
	if !m.showPreview || m.cursor >= len(m.records) {
		return nil
	}
	path := m.records[m.cursor].Path
	if path == m.previewPath {
		return nil
	}
	m.previewPath = path
	m.previewText = "Loading preview…"
	return previewCmd(m.ctx, m.backend, path)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		m.cancelScan()
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Help) {
		m.showHelp = !m.showHelp
		return m, nil
	}

	if m.scanning {
		if key.Matches(msg, m.keys.Cancel) {
			m.cancelScan()
			m.statusMsg = "Cancelling scan…"
		}
		return m, nil
	}
	if m.busy {
		return m, nil
	}

	if m.confirming {
		switch {
		case key.Matches(msg, m.keys.Yes):
			m.confirming = false
			m.busy = true
			m.statusMsg = "Deleting…"
			return m, tea.Batch(m.spinner.Tick, deleteCmd(m.ctx, m.backend, m.selectedPaths()))
		case key.Matches(msg, m.keys.No):
			m.confirming = false
			m.statusMsg = "Deletion cancelled."
		}
		return m, nil
	}

	m.err = nil
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, m.refreshPreview()

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.records)-1 {
			m.cursor++
		}
		return m, m.refreshPreview()

	case key.Matches(msg, m.keys.PrevGroup):
		if m.currentGroup > 0 {
			m.currentGroup--
			m.cursor = 0
			m.records = nil
			return m, m.loadGroup()
		}

	case key.Matches(msg, m.keys.NextGroup):
		if m.currentGroup < len(m.groups)-1 {
			m.currentGroup++
			m.cursor = 0
			m.records = nil
			return m, m.loadGroup()
		}

	case key.Matches(msg, m.keys.Toggle):
		if m.cursor < len(m.records) {
			p := m.records[m.cursor].Path
			m.setSelected(p, !m.selected[p])
			m.updateStatus()
		}

	case key.Matches(msg, m.keys.ToggleGroup):
		allSelected := len(m.records) > 0
		for _, r := range m.records {
			if !m.selected[r.Path] {
				allSelected = false
				break
			}
		}
		for _, r := range m.records {
			m.setSelected(r.Path, !allSelected)
		}
		m.updateStatus()

	case key.Matches(msg, m.keys.Sort):
		m.criterion = m.criterion.Next()
		m.statusMsg = "Sort: " + m.criterion.Label()
		return m, m.loadGroup()

	case key.Matches(msg, m.keys.Preview):
		m.showPreview = !m.showPreview
		m.previewPath = ""
		return m, m.refreshPreview()

	case key.Matches(msg, m.keys.Delete):
		if len(m.selected) == 0 {
			m.statusMsg = "No files selected."
			return m, nil
		}
		m.confirming = true

	case key.Matches(msg, m.keys.Move):
		if len(m.selected) == 0 {
			m.statusMsg = "No files selected."
			return m, nil
		}
		if m.opts.MoveTo == "" {
			m.statusMsg = "No destination: start with --move-to DIR to enable moving."
			return m, nil
		}
		m.busy = true
		m.statusMsg = "Moving…"
		return m, tea.Batch(m.spinner.Tick, moveCmd(m.ctx, m.backend, m.selectedPaths(), m.opts.MoveTo))

	case key.Matches(msg, m.keys.Backup):
		if len(m.selected) == 0 {
			m.statusMsg = "No files selected."
			return m, nil
		}
		m.busy = true
		m.statusMsg = "Backing up to " + m.backend.BackupDir() + "…"
		return m, tea.Batch(m.spinner.Tick, backupCmd(m.ctx, m.backend, m.selectedPaths()))

	case key.Matches(msg, m.keys.Rescan):
		m.statusMsg = ""
		return m, m.startScan()

	case key.Matches(msg, m.keys.ByDate):
		return m.organize(organize.ByDate)
	case key.Matches(msg, m.keys.ByType):
		return m.organize(organize.ByType)
	case key.Matches(msg, m.keys.ByName):
		return m.organize(organize.ByName)

	case key.Matches(msg, m.keys.Undo):
		m.busy = true
		m.statusMsg = "Undoing last organization…"
		return m, tea.Batch(m.spinner.Tick, undoCmd(context.WithoutCancel(m.ctx), m.backend))
	}

	return m, nil
}

func (m Model) organize(c organize.Criterion) (tea.Model, tea.Cmd) {
	m.busy = true
	m.statusMsg = fmt.Sprintf("Organizing %s by %s…", m.opts.Root, c)
	return m, tea.Batch(m.spinner.Tick, organizeCmd(context.WithoutCancel(m.ctx), m.backend, m.opts.Root, c))
}

func (m *Model) setSelected(path string, on bool) {
	if on {
		m.selected[path] = true
	} else {
		delete(m.selected, path)
	}
}

// selectedPaths returns the selection in group order.
func (m Model) selectedPaths() []string {
	var out []string
	for _, g := range m.groups {
		for _, p := range g.Paths {
			if m.selected[p] {
				out = append(out, p)
			}
		}
	}
	return out
}

// updateStatus updates the status message
func (m *Model) updateStatus() {
	inGroup := 0
	for _, r := range m.records {
		if m.selected[r.Path] {
			inGroup++
		}
	}
	m.statusMsg = fmt.Sprintf("Selected: %d/%d in group · %d total", inGroup, len(m.records), len(m.selected))
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var s strings.Builder

	// Header
	s.WriteString(titleStyle.Render(" dupesort "))
	s.WriteString(" ")
	s.WriteString(infoStyle.Render(m.opts.Root))
	s.WriteString("\n\n")

	switch {
	case m.scanning:
		s.WriteString(m.renderScanning())
	case m.err != nil && m.result == nil:
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	case len(m.groups) == 0:
		s.WriteString("No duplicates found!\n")
	default:
		s.WriteString(m.renderGroup())
	}

	if m.confirming {
		s.WriteString("\n")
		s.WriteString(warnStyle.Render(fmt.Sprintf("Delete %d selected file(s)? y/n", len(m.selected))))
		s.WriteString("\n")
	}

	if m.showPreview && m.previewText != "" && !m.scanning {
		s.WriteString("\n")
		s.WriteString(previewStyle.Render(m.previewText))
		s.WriteString("\n")
	}

	// Status
	s.WriteString("\n")
	if m.busy {
		s.WriteString(m.spinner.View() + " ")
	}
	if m.err != nil && m.result != nil {
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	}
	if m.statusMsg != "" {
		s.WriteString(infoStyle.Render(m.statusMsg))
		s.WriteString("\n")
	}

	// Help
	s.WriteString("\n")
	if m.showHelp {
		s.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		s.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}

	return s.String()
}

func (m Model) renderScanning() string {
	done, total := m.opts.Progress.Load()
	elapsed := time.Since(m.scanStart).Truncate(100 * time.Millisecond)

	var s strings.Builder
	s.WriteString(fmt.Sprintf("%s Scanning… %d/%d files · %s", m.spinner.View(), done, total, elapsed))
	s.WriteString("\n")
	s.WriteString(m.bar.ViewAs(m.opts.Progress.Fraction()))
	s.WriteString("\n")
	s.WriteString(infoStyle.Render("c to cancel"))
	s.WriteString("\n")
	return s.String()
}

func (m Model) renderGroup() string {
	var s strings.Builder

	group := m.groups[m.currentGroup]
	title := fmt.Sprintf("Duplicate Group %d/%d", m.currentGroup+1, len(m.groups))
	if m.result != nil && m.result.Partial() {
		title += warnStyle.Render("  (partial scan)")
	}
	s.WriteString(headerStyle.Render(title))
	s.WriteString("\n")

	info := fmt.Sprintf("Hash: %s | Sort: %s", group.Fingerprint.Short(), m.criterion.Label())
	if len(m.records) > 0 {
		info += " | Size: " + humanize.IBytes(uint64(m.records[0].Size))
	}
	s.WriteString(infoStyle.Render(info))
	s.WriteString("\n\n")

	// File list
	s.WriteString(m.renderFileList())
	return s.String()
}

// renderFileList renders the list of files in the current group
func (m Model) renderFileList() string {
	var s strings.Builder

	for i, file := range m.records {
		var line strings.Builder

		// Checkbox
		if m.selected[file.Path] {
			line.WriteString(checkedStyle.Render("[✓] "))
		} else {
			line.WriteString(uncheckedStyle.Render("[ ] "))
		}

		name := filepath.Base(file.Path)
		if file.Name != "" {
			name = file.Name
		}
		if i == m.cursor {
			line.WriteString(selectedItemStyle.Render("> " + name))
		} else {
			line.WriteString(itemStyle.Render(name))
		}

		info := fmt.Sprintf(" (%s, %s)  %s",
			humanize.IBytes(uint64(file.Size)),
			file.ModTime.Format("2006-01-02 15:04:05"),
			filepath.Dir(file.Path))
		line.WriteString(infoStyle.Render(info))

		s.WriteString(line.String())
		s.WriteString("\n")
	}

	for _, p := range m.missing {
		s.WriteString(uncheckedStyle.Render("    " + p + " (missing)"))
		s.WriteString("\n")
	}

	return s.String()
}

// Run starts the TUI and blocks until the user quits.
func Run(ctx context.Context, b Backend, opts Options) error {
	p := tea.NewProgram(New(ctx, b, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
