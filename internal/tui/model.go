// Package tui provides a read-only terminal UI for browsing the
// destination volume: retained periods, their images, and free space.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/maxivhuber/rpi-backup/internal/adapters/osfs"
	"github.com/maxivhuber/rpi-backup/internal/adapters/statfsprobe"
	"github.com/maxivhuber/rpi-backup/internal/adapters/sysmount"
	"github.com/maxivhuber/rpi-backup/internal/backup"
	"github.com/maxivhuber/rpi-backup/internal/config"
)

// View represents the current view state
type View int

const (
	PeriodsView View = iota
	ImagesView
)

// Inventory supplies the destination's contents. The default implementation
// mounts the volume when needed; tests substitute canned data.
type Inventory interface {
	Scan(cfg *config.Config) ([]backup.PeriodInfo, error)
	Available(cfg *config.Config) (uint64, error)
}

// Model is the main TUI model
type Model struct {
	config    *config.Config
	inventory Inventory
	view      View
	width     int
	height    int
	quitting  bool

	// Periods view
	periods      []backup.PeriodInfo
	periodCursor int
	available    uint64

	// Images view
	selectedPeriod int
	imageCursor    int

	// Status message
	statusMsg string
	statusErr bool
}

// Key bindings
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Back    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// defaultInventory scans the real destination, mounting it when needed.
type defaultInventory struct{}

func (defaultInventory) Scan(cfg *config.Config) ([]backup.PeriodInfo, error) {
	mounter := sysmount.New()
	mounted, err := mounter.IsMounted(cfg.BackupRoot)
	if err != nil {
		return nil, err
	}
	if !mounted {
		if err := mounter.Mount(cfg.BackupRoot); err != nil {
			return nil, err
		}
		defer func() { _ = mounter.Unmount(cfg.BackupRoot) }()
	}
	return backup.ScanPeriods(osfs.New(), cfg.BackupRoot, cfg.ImageName)
}

func (defaultInventory) Available(cfg *config.Config) (uint64, error) {
	return statfsprobe.New().Available(cfg.BackupRoot)
}

// NewModel creates a new TUI model
func NewModel() (*Model, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	m := &Model{
		config:    cfg,
		inventory: defaultInventory{},
		view:      PeriodsView,
	}

	if err := m.loadPeriods(); err != nil {
		return nil, err
	}

	return m, nil
}

// NewModelWithInventory creates a model with an explicit inventory,
// without touching the real destination. Used by tests.
func NewModelWithInventory(cfg *config.Config, inv Inventory) *Model {
	return &Model{
		config:    cfg,
		inventory: inv,
		view:      PeriodsView,
	}
}

// loadPeriods refreshes the period list and free-space reading
func (m *Model) loadPeriods() error {
	periods, err := m.inventory.Scan(m.config)
	if err != nil {
		return err
	}
	m.periods = periods
	if m.periodCursor >= len(m.periods) {
		m.periodCursor = len(m.periods) - 1
	}
	if m.periodCursor < 0 {
		m.periodCursor = 0
	}
	// A rescan can return fewer periods than before (retention deleted
	// them, or the volume went away). If the open period is gone, drop
	// back to the period list instead of rendering a stale index.
	if m.selectedPeriod >= len(m.periods) {
		m.selectedPeriod = 0
		m.imageCursor = 0
		if m.view == ImagesView {
			m.view = PeriodsView
		}
	}

	if avail, err := m.inventory.Available(m.config); err == nil {
		m.available = avail
	}
	return nil
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Refresh failed: %v", msg.err)
			m.statusErr = true
		} else {
			m.statusMsg = "Refreshed"
			m.statusErr = false
		}
		return m, nil

	case tea.KeyMsg:
		// Clear status on any key
		m.statusMsg = ""
		m.statusErr = false

		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			m.moveCursor(-1)

		case key.Matches(msg, keys.Down):
			m.moveCursor(1)

		case key.Matches(msg, keys.Enter):
			if m.view == PeriodsView && len(m.periods) > 0 {
				m.selectedPeriod = m.periodCursor
				m.imageCursor = 0
				m.view = ImagesView
			}

		case key.Matches(msg, keys.Back):
			if m.view == ImagesView {
				m.view = PeriodsView
				m.imageCursor = 0
			}

		case key.Matches(msg, keys.Refresh):
			return m, m.refresh()
		}
	}

	return m, nil
}

func (m *Model) moveCursor(delta int) {
	switch m.view {
	case PeriodsView:
		m.periodCursor += delta
		if m.periodCursor < 0 {
			m.periodCursor = 0
		}
		if m.periodCursor >= len(m.periods) {
			m.periodCursor = len(m.periods) - 1
		}
	case ImagesView:
		images := m.currentImages()
		m.imageCursor += delta
		if m.imageCursor < 0 {
			m.imageCursor = 0
		}
		if m.imageCursor >= len(images) {
			m.imageCursor = len(images) - 1
		}
	}
}

func (m *Model) currentImages() []backup.ImageInfo {
	if m.selectedPeriod < 0 || m.selectedPeriod >= len(m.periods) {
		return nil
	}
	return m.periods[m.selectedPeriod].Images
}

type refreshMsg struct {
	err error
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return refreshMsg{err: m.loadPeriods()}
	}
}

// View renders the UI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.view {
	case PeriodsView:
		content = m.renderPeriodsView()
	case ImagesView:
		content = m.renderImagesView()
	}

	return appStyle.Render(content)
}

func (m *Model) renderPeriodsView() string {
	var b strings.Builder

	// Title
	title := titleStyle.Render(" 💾 rpi-backup ")
	b.WriteString(title)
	b.WriteString("\n\n")

	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s free on %s",
		backup.FormatSize(int64(m.available)), m.config.BackupRoot)))
	b.WriteString("\n\n")

	if len(m.periods) == 0 {
		b.WriteString(dimStyle.Render("  No backups found"))
		b.WriteString("\n")
	} else {
		// Header
		header := fmt.Sprintf("  %-14s %8s %10s %12s %s",
			"PERIOD", "IMAGES", "SNAPSHOTS", "SIZE", "LAST BACKUP")
		b.WriteString(dimStyle.Render(header))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(strings.Repeat("─", 70)))
		b.WriteString("\n")

		// List items
		visibleHeight := m.height - 12
		if visibleHeight < 5 {
			visibleHeight = 5
		}

		start := 0
		if m.periodCursor >= visibleHeight {
			start = m.periodCursor - visibleHeight + 1
		}

		for i := start; i < len(m.periods) && i < start+visibleHeight; i++ {
			p := m.periods[i]
			cursor := "  "
			style := normalStyle
			if i == m.periodCursor {
				cursor = "▸ "
				style = selectedStyle
			}

			line := fmt.Sprintf("%s%-14s %8d %10d %12s %s",
				cursor,
				p.Period.String(),
				len(p.Images),
				p.Snapshots(),
				backup.FormatSize(p.TotalSize),
				relativeTime(p.LastModified))
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
	}

	// Status
	b.WriteString("\n")
	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorBadge.Render(m.statusMsg))
		} else {
			b.WriteString(successBadge.Render(m.statusMsg))
		}
	}
	b.WriteString("\n")

	// Help
	help := "[↑/↓] navigate  [enter] images  [r] refresh  [q] quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m *Model) renderImagesView() string {
	var b strings.Builder

	period := m.periods[m.selectedPeriod]

	// Title
	title := titleStyle.Render(fmt.Sprintf(" 💾 %s ", period.Period.String()))
	b.WriteString(title)
	b.WriteString("\n\n")

	b.WriteString(dimStyle.Render("  " + period.Dir))
	b.WriteString("\n\n")

	if len(period.Images) == 0 {
		b.WriteString(dimStyle.Render("  No images"))
		b.WriteString("\n")
	} else {
		// Header
		header := fmt.Sprintf("  %-34s %12s %10s %s",
			"IMAGE", "SIZE", "KIND", "MODIFIED")
		b.WriteString(dimStyle.Render(header))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(strings.Repeat("─", 76)))
		b.WriteString("\n")

		visibleHeight := m.height - 12
		if visibleHeight < 5 {
			visibleHeight = 5
		}

		start := 0
		if m.imageCursor >= visibleHeight {
			start = m.imageCursor - visibleHeight + 1
		}

		for i := start; i < len(period.Images) && i < start+visibleHeight; i++ {
			img := period.Images[i]
			cursor := "  "
			style := normalStyle
			if i == m.imageCursor {
				cursor = "▸ "
				style = selectedStyle
			}

			kind := "current"
			if img.Snapshot {
				kind = snapshotStyle.Render("snapshot")
			}

			line := fmt.Sprintf("%s%-34s %12s %10s %s",
				cursor,
				truncate(img.Name, 34),
				backup.FormatSize(img.Size),
				kind,
				img.ModTime.Format("2006-01-02 15:04"))
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
	}

	// Status
	b.WriteString("\n")
	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorBadge.Render(m.statusMsg))
		} else {
			b.WriteString(successBadge.Render(m.statusMsg))
		}
	}
	b.WriteString("\n")

	// Help
	help := "[↑/↓] navigate  [esc] back  [r] refresh  [q] quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// Run starts the TUI program
func Run() error {
	m, err := NewModel()
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
