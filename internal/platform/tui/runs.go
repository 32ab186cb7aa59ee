package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tui-traffic/internal/registry"
	"github.com/vovakirdan/tui-traffic/internal/storage"
)

// Runs board layout constants
const (
	minWidthForSidebar = 90  // Minimum width to show the scene sidebar
	sidebarWidth       = 22  // Width of scene sidebar
	maxRuns            = 100 // Max runs to load
)

// RunsKeyMap defines the key bindings for the runs board.
type RunsKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	NextScene key.Binding
	PrevScene key.Binding
	Back      key.Binding
	Quit      key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k RunsKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.NextScene, k.PrevScene, k.Back}
}

// FullHelp returns key bindings for the full help view.
func (k RunsKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextScene, k.PrevScene},
		{k.Back, k.Quit},
	}
}

// DefaultRunsKeyMap returns default key bindings.
func DefaultRunsKeyMap() RunsKeyMap {
	return RunsKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "scroll down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("left/h", "prev scene"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("right/l", "next scene"),
		),
		NextScene: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next scene"),
		),
		PrevScene: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-tab", "prev scene"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "b"),
			key.WithHelp("esc/b", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// RunsModel is the Bubble Tea model for the saved runs board.
type RunsModel struct {
	scenes      []string
	cursor      int
	store       *storage.Store
	runs        []storage.RunRecord
	table       table.Model
	help        help.Model
	keys        RunsKeyMap
	renderer    *lipgloss.Renderer
	width       int
	height      int
	quitting    bool
	goingBack   bool
	showSidebar bool
}

// NewRunsModel lists registered scenes first, then any other scene that
// has saved runs, such as scenes loaded from files.
func NewRunsModel(store *storage.Store, r *lipgloss.Renderer, width, height int) RunsModel {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}

	var scenes []string
	for _, sc := range registry.List() {
		scenes = append(scenes, sc.ID)
	}
	if store != nil {
		if sums, err := store.SceneSummaries(); err == nil {
			for _, s := range sums {
				if !slices.Contains(scenes, s.SceneID) {
					scenes = append(scenes, s.SceneID)
				}
			}
		}
	}

	h := help.New()
	h.Styles = helpStyles(r)

	m := RunsModel{
		scenes:      scenes,
		store:       store,
		keys:        DefaultRunsKeyMap(),
		help:        h,
		renderer:    r,
		width:       width,
		height:      height,
		showSidebar: width >= minWidthForSidebar,
	}
	m.table = m.createTable()
	if len(m.scenes) > 0 {
		m.loadRuns(m.scenes[0])
	}
	return m
}

// createTable creates a new table with appropriate columns.
func (m *RunsModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Thru/min", Width: 9},
		{Title: "Exited", Width: 7},
		{Title: "Speed", Width: 6},
		{Title: "Transit", Width: 8},
		{Title: "Seed", Width: 12},
		{Title: "Date", Width: 12},
	}

	tableWidth := m.width - 4
	if m.showSidebar {
		tableWidth -= sidebarWidth + 3
	}
	// Drop the seed column first when space is tight.
	if tableWidth < 70 {
		columns = slices.Delete(columns, 5, 6)
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(max(m.height-8, 3)),
	)

	s := table.DefaultStyles()
	s.Header = m.renderer.NewStyle().
		Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Cell = m.renderer.NewStyle().Padding(0, 1)
	s.Selected = m.renderer.NewStyle().
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(s)

	return t
}

// loadRuns loads the best runs for a scene.
func (m *RunsModel) loadRuns(sceneID string) {
	m.runs = nil
	if m.store != nil {
		if runs, err := m.store.TopRuns(sceneID, maxRuns); err == nil {
			m.runs = runs
		}
	}
	m.updateTableRows()
}

func (m *RunsModel) updateTableRows() {
	wide := len(m.table.Columns()) == 7
	rows := make([]table.Row, len(m.runs))
	for i, r := range m.runs {
		row := table.Row{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.1f", r.Throughput),
			fmt.Sprintf("%d", r.Exited),
			fmt.Sprintf("%.1f", r.MeanSpeed),
			fmt.Sprintf("%.1fs", r.MeanTransit),
		}
		if wide {
			row = append(row, fmt.Sprintf("%d", r.Seed))
		}
		rows[i] = append(row, r.CreatedAt.Local().Format("Jan 02 15:04"))
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// Runs returns the runs shown for the current scene.
func (m RunsModel) Runs() []storage.RunRecord { return m.runs }

// Scene returns the scene currently shown.
func (m RunsModel) Scene() string {
	if len(m.scenes) == 0 {
		return ""
	}
	return m.scenes[m.cursor]
}

// Init initializes the runs board.
func (m RunsModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the runs board.
func (m RunsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Back):
			m.goingBack = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.NextScene), key.Matches(msg, m.keys.Right):
			if len(m.scenes) > 0 {
				m.cursor = (m.cursor + 1) % len(m.scenes)
				m.loadRuns(m.scenes[m.cursor])
			}
			return m, nil

		case key.Matches(msg, m.keys.PrevScene), key.Matches(msg, m.keys.Left):
			if len(m.scenes) > 0 {
				m.cursor = (m.cursor - 1 + len(m.scenes)) % len(m.scenes)
				m.loadRuns(m.scenes[m.cursor])
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.showSidebar = m.width >= minWidthForSidebar
		m.table = m.createTable()
		m.updateTableRows()
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the runs board.
func (m RunsModel) View() string {
	if m.quitting || m.goingBack {
		return ""
	}

	var b strings.Builder

	title := "SAVED RUNS"
	if sc := m.Scene(); sc != "" {
		title = fmt.Sprintf("SAVED RUNS - %s", sc)
	}
	titleStyle := m.renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	b.WriteString(titleStyle.Render(centerText(title, m.width)))
	b.WriteString("\n\n")

	if m.showSidebar {
		b.WriteString(m.renderWideLayout())
	} else {
		b.WriteString(m.renderNarrowLayout())
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m RunsModel) boxStyle() lipgloss.Style {
	return m.renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
}

// renderWideLayout renders the board with a sidebar for scene selection.
func (m RunsModel) renderWideLayout() string {
	var sidebar strings.Builder
	sidebar.WriteString("Scenes\n")
	sidebar.WriteString(strings.Repeat("-", sidebarWidth-4))
	sidebar.WriteString("\n")

	for i, id := range m.scenes {
		cursor := "  "
		style := m.renderer.NewStyle()
		if i == m.cursor {
			cursor = "> "
			style = style.Bold(true).Foreground(lipgloss.Color("229"))
		}
		sidebar.WriteString(style.Render(cursor + truncate(id, sidebarWidth-6)))
		sidebar.WriteString("\n")
	}

	side := m.boxStyle().Width(sidebarWidth).Render(sidebar.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, side, "  ", m.boxStyle().Render(m.renderTableContent()))
}

// renderNarrowLayout renders the board with the scene name above the table.
func (m RunsModel) renderNarrowLayout() string {
	var b strings.Builder
	if sc := m.Scene(); sc != "" {
		b.WriteString(centerText(fmt.Sprintf("< %s >", sc), m.width))
		b.WriteString("\n\n")
	}
	b.WriteString(m.boxStyle().Render(m.renderTableContent()))
	return b.String()
}

func (m RunsModel) renderTableContent() string {
	if len(m.runs) == 0 {
		return m.renderer.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true).
			Padding(2, 4).
			Render("No runs recorded yet.\nWatch or run a scene to record one.")
	}
	return m.table.View()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "."
}

// IsGoingBack returns true if user wants to go back to menu.
func (m RunsModel) IsGoingBack() bool {
	return m.goingBack
}

// IsQuitting returns true if user wants to quit entirely.
func (m RunsModel) IsQuitting() bool {
	return m.quitting
}

// RunRunsBoard runs the board as its own program.
// Returns true if user wants to go back to menu, false if quitting.
func RunRunsBoard(store *storage.Store, width, height int) (goBack bool, err error) {
	p := tea.NewProgram(NewRunsModel(store, nil, width, height), tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return false, err
	}

	m, ok := finalModel.(RunsModel)
	if !ok {
		return false, nil
	}
	return m.IsGoingBack(), nil
}
