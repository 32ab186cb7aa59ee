package tui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-traffic/internal/config"
	"github.com/vovakirdan/tui-traffic/internal/core"
	"github.com/vovakirdan/tui-traffic/internal/routing"
	"github.com/vovakirdan/tui-traffic/internal/sim"
	"github.com/vovakirdan/tui-traffic/internal/storage"
)

// maxTicksPerFrame caps the fast-forward multiplier.
const maxTicksPerFrame = 64

// WorldBuilder creates a fresh world for a seed.
type WorldBuilder func(seed int64) (*sim.World, error)

// ViewerOptions configures a viewer.
type ViewerOptions struct {
	SceneID       string
	Build         WorldBuilder
	Palette       config.Palette
	TicksPerFrame int
	Preset        string
	Store         *storage.Store // optional; finished runs are saved here
	Logger        *log.Logger
	Renderer      *lipgloss.Renderer

	// Embedded viewers hand control back to their parent on Back instead
	// of quitting the program.
	Embedded bool
}

// ViewerModel is the Bubble Tea model for watching a running world.
type ViewerModel struct {
	opts    ViewerOptions
	world   *sim.World
	min     routing.Coord
	max     routing.Coord
	tiles   []sim.TileView
	screen  *core.Screen
	painter *Painter
	config  core.RuntimeConfig
	keys    ViewerKeyMap
	help    help.Model
	input   core.InputFrame
	logger  *log.Logger

	speed    int
	paused   bool
	err      error
	saved    bool
	quitting bool
	done     bool
}

// NewViewer builds the first world and returns a ready model.
func NewViewer(opts ViewerOptions, cfg core.RuntimeConfig) (ViewerModel, error) {
	cfg = cfg.Normalized()
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if opts.Build == nil {
		return ViewerModel{}, fmt.Errorf("tui: viewer for %q has no world builder", opts.SceneID)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	painter := NewPainter(opts.Renderer)
	h := help.New()
	h.Styles = helpStyles(painter.Renderer())
	h.Width = cfg.ScreenW

	m := ViewerModel{
		opts:    opts,
		screen:  core.NewScreen(cfg.ScreenW, cfg.ScreenH),
		painter: painter,
		config:  cfg,
		keys:    DefaultViewerKeyMap(),
		help:    h,
		input:   core.NewInputFrame(),
		logger:  logger,
		speed:   core.Clamp(opts.TicksPerFrame, 1, maxTicksPerFrame),
	}
	if err := m.reset(); err != nil {
		return ViewerModel{}, err
	}
	return m, nil
}

func helpStyles(r *lipgloss.Renderer) help.Styles {
	key := r.NewStyle().Foreground(lipgloss.Color("250"))
	desc := r.NewStyle().Foreground(lipgloss.Color("243"))
	sep := r.NewStyle().Foreground(lipgloss.Color("238"))
	return help.Styles{
		ShortKey:       key,
		ShortDesc:      desc,
		ShortSeparator: sep,
		Ellipsis:       sep,
		FullKey:        key,
		FullDesc:       desc,
		FullSeparator:  sep,
	}
}

// reset rebuilds the world from the current seed.
func (m *ViewerModel) reset() error {
	w, err := m.opts.Build(m.config.Seed)
	if err != nil {
		return fmt.Errorf("tui: build %s: %w", m.opts.SceneID, err)
	}
	m.world = w
	m.min, m.max = w.Tiles().Bounds()
	m.tiles = sim.TileViews(w.Tiles())
	m.err = nil
	m.saved = false
	m.logger.Debug("world ready", "scene", m.opts.SceneID, "seed", m.config.Seed)
	return nil
}

// World returns the running world.
func (m ViewerModel) World() *sim.World { return m.world }

// Seed returns the seed of the running world.
func (m ViewerModel) Seed() int64 { return m.config.Seed }

// Paused reports whether the simulation is paused.
func (m ViewerModel) Paused() bool { return m.paused }

// Speed returns the ticks simulated per frame.
func (m ViewerModel) Speed() int { return m.speed }

// Done reports whether an embedded viewer asked to go back.
func (m ViewerModel) Done() bool { return m.done }

// Err returns the error that stopped the simulation, if any.
func (m ViewerModel) Err() error { return m.err }

// Init starts the tick loop.
func (m ViewerModel) Init() tea.Cmd {
	return tickCmd(m.config.TickRate)
}

// Update handles messages and updates the model state.
func (m ViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.config.ScreenW = msg.Width
		m.config.ScreenH = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		return m.handleTick()
	}

	return m, nil
}

func (m ViewerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+s" {
		m.saveScreenshot()
		return m, nil
	}

	switch action := m.keys.Action(msg); action {
	case core.ActionQuit:
		m.saveRun()
		m.quitting = true
		return m, tea.Quit
	case core.ActionBack:
		m.saveRun()
		if m.opts.Embedded {
			m.done = true
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit
	default:
		m.input.Set(action)
	}
	return m, nil
}

// handleTick applies queued actions and advances the world.
func (m ViewerModel) handleTick() (tea.Model, tea.Cmd) {
	if m.done {
		return m, nil
	}

	in := m.input
	if in.Has(core.ActionHelp) {
		m.help.ShowAll = !m.help.ShowAll
	}
	if in.Has(core.ActionPause) {
		m.paused = !m.paused
	}
	if in.Has(core.ActionFaster) {
		m.speed = min(m.speed*2, maxTicksPerFrame)
	}
	if in.Has(core.ActionSlower) {
		m.speed = max(m.speed/2, 1)
	}
	if in.Has(core.ActionRestart) || in.Has(core.ActionReseed) {
		m.saveRun()
		if in.Has(core.ActionReseed) {
			m.config.Seed = time.Now().UnixNano()
		}
		if err := m.reset(); err != nil {
			m.err = err
			m.paused = true
		}
	}

	steps := 0
	switch {
	case m.err != nil:
	case !m.paused:
		steps = m.speed
	case in.Has(core.ActionStep):
		steps = 1
	}
	for range steps {
		if _, err := m.world.Step(); err != nil {
			m.err = err
			m.paused = true
			m.logger.Error("simulation stopped", "scene", m.opts.SceneID, "tick", m.world.Tick(), "err", err)
			break
		}
	}

	m.input.Clear()
	return m, tickCmd(m.config.TickRate)
}

// saveRun stores the run once, if anything was simulated.
func (m *ViewerModel) saveRun() {
	if m.opts.Store == nil || m.world == nil || m.saved || m.world.Tick() == 0 {
		return
	}
	rec := storage.NewRunRecord(m.opts.SceneID, m.config.Seed, m.opts.Preset, m.world.Stats())
	saved, err := m.opts.Store.SaveRun(rec)
	if err != nil {
		m.logger.Warn("run not saved", "scene", m.opts.SceneID, "err", err)
		return
	}
	m.saved = true
	m.logger.Info("run saved", "run", saved.RunID, "scene", saved.SceneID, "throughput", saved.Throughput)
}

// saveScreenshot saves the current screen to a file.
func (m *ViewerModel) saveScreenshot() {
	m.draw(m.help.View(m.keys))

	dir := filepath.Join(os.Getenv("HOME"), ".traffic", "screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		m.logger.Warn("screenshot failed", "err", err)
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.txt", m.opts.SceneID, timestamp))
	if err := os.WriteFile(path, []byte(m.screen.String()), 0o600); err != nil {
		m.logger.Warn("screenshot failed", "err", err)
		return
	}
	m.logger.Info("screenshot saved", "path", path)
}

// draw renders the framed map and status line into the screen buffer,
// leaving room below for the help view.
func (m *ViewerModel) draw(helpView string) {
	h := max(m.config.ScreenH-lipgloss.Height(helpView), 2)
	if m.screen.Width() != m.config.ScreenW || m.screen.Height() != h {
		m.screen.Resize(m.config.ScreenW, h)
	}
	m.screen.Clear()

	p := m.opts.Palette
	area := core.NewRect(0, 0, m.config.ScreenW, h-1)
	layout := NewLayout(m.min, m.max, area.Inset(1))
	frame := m.world.Frame()
	DrawTiles(m.screen, layout, m.tiles, p)
	DrawFrame(m.screen, layout, frame, p)
	m.screen.DrawBox(area, p.Road)
	if m.paused {
		m.screen.DrawTextCentered(area.Y, " PAUSED ", p.Amber)
	}

	status, color := StatusLine(frame, m.world.Stats(), m.speed, m.paused), p.Status
	if m.err != nil {
		status, color = " error: "+m.err.Error(), core.ColorBrightRed
	}
	m.screen.DrawTextColored(0, h-1, status, color)
}

// View renders the current state to a string for display.
func (m ViewerModel) View() string {
	if m.quitting {
		return ""
	}
	helpView := m.help.View(m.keys)
	m.draw(helpView)
	return m.painter.Render(m.screen) + "\n" + helpView
}

// RunViewer starts a standalone viewer program.
func RunViewer(opts ViewerOptions, cfg core.RuntimeConfig) error {
	model, err := NewViewer(opts, cfg)
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
