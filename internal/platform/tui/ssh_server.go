package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/tui-traffic/internal/config"
	"github.com/vovakirdan/tui-traffic/internal/core"
	"github.com/vovakirdan/tui-traffic/internal/registry"
	"github.com/vovakirdan/tui-traffic/internal/sim"
	"github.com/vovakirdan/tui-traffic/internal/storage"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.traffic/host_key.
	HostKeyPath string

	// DBPath is the path to the runs database.
	DBPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// Sim is the simulation config every session uses.
	Sim config.SimConfig

	// Preset is recorded with saved runs.
	Preset string

	// Logger receives server and session events. Nil uses a timestamped
	// logger on stderr.
	Logger *log.Logger
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23234",
		DBPath:      "~/.traffic/runs.db",
		IdleTimeout: 30 * time.Minute,
		Sim:         config.DefaultSimConfig(),
		Preset:      string(config.TrafficNormal),
	}
}

// SSHServer wraps a Wish SSH server serving the viewer.
type SSHServer struct {
	config  SSHServerConfig
	palette config.Palette
	server  *ssh.Server
	store   *storage.Store
	logger  *log.Logger
}

// NewSSHServer creates a new SSH server with the given configuration.
func NewSSHServer(cfg SSHServerConfig) (*SSHServer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "traffic-ssh",
		})
	}

	palette, err := cfg.Sim.View.Colors.Palette()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Warn("could not open runs database", "error", err)
		// Continue without storage
		store = nil
	}

	srv := &SSHServer{
		config:  cfg,
		palette: palette,
		store:   store,
		logger:  logger,
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".traffic", "host_key")
	}
	if mkdirErr := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	server, err := wish.NewServer(
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler creates a Bubble Tea program for each SSH session.
func (s *SSHServer) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sess.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sess.User())
		return nil, nil
	}

	cfg := core.RuntimeConfig{
		ScreenW:  pty.Window.Width,
		ScreenH:  pty.Window.Height,
		TickRate: 60,
		Seed:     time.Now().UnixNano(),
	}

	model := NewSessionModel(SessionOptions{
		Store:    s.store,
		Sim:      s.config.Sim,
		Palette:  s.palette,
		Preset:   s.config.Preset,
		Renderer: bubbletea.MakeRenderer(sess),
		Logger:   s.logger.With("user", sess.User()),
	}, cfg)

	return model, []tea.ProgramOption{tea.WithAltScreen()}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		s.logger.Info("session started",
			"user", sess.User(),
			"remote", sess.RemoteAddr().String(),
		)
		next(sess)
		s.logger.Info("session ended",
			"user", sess.User(),
			"remote", sess.RemoteAddr().String(),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until shutdown.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	<-done
	s.logger.Info("shutting down...")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.store != nil {
		s.store.Close()
	}

	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}

// SceneBuilder returns a WorldBuilder for a registered scene.
func SceneBuilder(sceneID string, cfg config.SimConfig, opts ...sim.Option) WorldBuilder {
	return func(seed int64) (*sim.World, error) {
		sc, err := registry.Create(sceneID)
		if err != nil {
			return nil, err
		}
		return cfg.NewWorld(sc, seed, opts...)
	}
}

// SessionOptions is what every screen of a session shares.
type SessionOptions struct {
	Store    *storage.Store
	Sim      config.SimConfig
	Palette  config.Palette
	Preset   string
	Renderer *lipgloss.Renderer
	Logger   *log.Logger
}

type sessionMode int

const (
	modeMenu sessionMode = iota
	modeViewer
	modeRuns
)

// SessionModel manages the full session flow: picker -> viewer or runs
// board -> picker. This is the top-level model used for SSH sessions.
type SessionModel struct {
	opts     SessionOptions
	config   core.RuntimeConfig
	mode     sessionMode
	menu     MenuModel
	viewer   ViewerModel
	runs     RunsModel
	err      error
	quitting bool
}

// NewSessionModel creates a new session model.
func NewSessionModel(opts SessionOptions, cfg core.RuntimeConfig) SessionModel {
	return SessionModel{
		opts:   opts,
		config: cfg,
		menu:   NewMenuModel(opts.Store, cfg),
	}
}

// Init initializes the session.
func (m SessionModel) Init() tea.Cmd {
	return m.menu.Init()
}

// Update handles messages for the session.
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.config.ScreenW = wsm.Width
		m.config.ScreenH = wsm.Height
	}

	switch m.mode {
	case modeViewer:
		return m.updateViewer(msg)
	case modeRuns:
		return m.updateRuns(msg)
	default:
		return m.updateMenu(msg)
	}
}

func (m SessionModel) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.menu.Update(msg)
	if menu, ok := next.(MenuModel); ok {
		m.menu = menu
	}

	switch {
	case m.menu.IsQuitting():
		m.quitting = true
		return m, tea.Quit

	case m.menu.WantsRuns():
		m.runs = NewRunsModel(m.opts.Store, m.opts.Renderer, m.config.ScreenW, m.config.ScreenH)
		m.mode = modeRuns
		return m, m.runs.Init()

	case m.menu.Selected() != nil:
		sceneID := m.menu.Selected().SceneID
		cfg := m.config
		cfg.Seed = time.Now().UnixNano()
		viewer, err := NewViewer(ViewerOptions{
			SceneID:       sceneID,
			Build:         SceneBuilder(sceneID, m.opts.Sim),
			Palette:       m.opts.Palette,
			TicksPerFrame: m.opts.Sim.View.TicksPerFrame,
			Preset:        m.opts.Preset,
			Store:         m.opts.Store,
			Logger:        m.opts.Logger,
			Renderer:      m.opts.Renderer,
			Embedded:      true,
		}, cfg)
		if err != nil {
			m.err = err
			m.menu = NewMenuModel(m.opts.Store, m.config)
			return m, nil
		}
		m.err = nil
		m.viewer = viewer
		m.mode = modeViewer
		return m, m.viewer.Init()
	}

	return m, cmd
}

func (m SessionModel) updateViewer(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.viewer.Update(msg)
	if viewer, ok := next.(ViewerModel); ok {
		m.viewer = viewer
	}

	switch {
	case m.viewer.Done():
		return m.backToMenu()
	case m.viewer.quitting:
		m.quitting = true
		return m, tea.Quit
	}
	return m, cmd
}

func (m SessionModel) updateRuns(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.runs.Update(msg)
	if runs, ok := next.(RunsModel); ok {
		m.runs = runs
	}

	switch {
	case m.runs.IsGoingBack():
		return m.backToMenu()
	case m.runs.IsQuitting():
		m.quitting = true
		return m, tea.Quit
	}
	return m, cmd
}

func (m SessionModel) backToMenu() (tea.Model, tea.Cmd) {
	m.mode = modeMenu
	m.menu = NewMenuModel(m.opts.Store, m.config)
	return m, m.menu.Init()
}

// Mode names the active screen, for tests and logging.
func (m SessionModel) Mode() string {
	switch m.mode {
	case modeViewer:
		return "viewer"
	case modeRuns:
		return "runs"
	default:
		return "menu"
	}
}

// View renders the current view.
func (m SessionModel) View() string {
	if m.quitting {
		return ""
	}

	switch m.mode {
	case modeViewer:
		return m.viewer.View()
	case modeRuns:
		return m.runs.View()
	}

	if m.err != nil {
		return m.menu.View() + "\n" + centerText("error: "+m.err.Error(), m.config.ScreenW)
	}
	return m.menu.View()
}
