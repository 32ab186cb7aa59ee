package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/tui-traffic/internal/config"
	"github.com/vovakirdan/tui-traffic/internal/core"
	"github.com/vovakirdan/tui-traffic/internal/scene/builtin"
	"github.com/vovakirdan/tui-traffic/internal/storage"
)

func newTestViewer(t *testing.T, opts ViewerOptions) ViewerModel {
	t.Helper()
	opts.SceneID = builtin.CrossroadsID
	opts.Build = SceneBuilder(builtin.CrossroadsID, config.DefaultSimConfig())
	opts.Palette = testPalette(t)

	m, err := NewViewer(opts, core.RuntimeConfig{ScreenW: 80, ScreenH: 24, TickRate: 60, Seed: 42})
	if err != nil {
		t.Fatalf("NewViewer: %v", err)
	}
	return m
}

func send(t *testing.T, m ViewerModel, msgs ...tea.Msg) (ViewerModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		var ok bool
		if m, ok = next.(ViewerModel); !ok {
			t.Fatalf("Update returned %T", next)
		}
	}
	return m, cmd
}

func tick() tea.Msg { return TickMsg(time.Now()) }

func TestViewerStepsOnTick(t *testing.T) {
	m := newTestViewer(t, ViewerOptions{})
	m, cmd := send(t, m, tick(), tick(), tick())
	if got := m.World().Tick(); got != 3 {
		t.Errorf("tick = %d, want 3", got)
	}
	if cmd == nil {
		t.Error("tick loop stopped")
	}
}

func TestViewerPauseAndStep(t *testing.T) {
	m := newTestViewer(t, ViewerOptions{})
	m, _ = send(t, m, runeKey('p'), tick(), tick())
	if !m.Paused() {
		t.Fatal("not paused")
	}
	if got := m.World().Tick(); got != 0 {
		t.Errorf("paused world advanced to %d", got)
	}

	m, _ = send(t, m, runeKey('n'), tick())
	if got := m.World().Tick(); got != 1 {
		t.Errorf("step advanced to %d, want 1", got)
	}

	m, _ = send(t, m, runeKey('p'), tick())
	if m.Paused() || m.World().Tick() != 2 {
		t.Errorf("resume: paused=%v tick=%d", m.Paused(), m.World().Tick())
	}
}

func TestViewerSpeed(t *testing.T) {
	m := newTestViewer(t, ViewerOptions{TicksPerFrame: 2})
	if m.Speed() != 2 {
		t.Fatalf("initial speed = %d", m.Speed())
	}

	m, _ = send(t, m, runeKey('+'), tick())
	if m.Speed() != 4 || m.World().Tick() != 4 {
		t.Errorf("after faster: speed=%d tick=%d", m.Speed(), m.World().Tick())
	}

	for range 8 {
		m, _ = send(t, m, runeKey('+'), tick())
	}
	if m.Speed() != maxTicksPerFrame {
		t.Errorf("speed = %d, want cap %d", m.Speed(), maxTicksPerFrame)
	}

	for range 10 {
		m, _ = send(t, m, runeKey('-'), tick())
	}
	if m.Speed() != 1 {
		t.Errorf("speed = %d, want floor 1", m.Speed())
	}
}

func TestViewerRestartKeepsSeed(t *testing.T) {
	m := newTestViewer(t, ViewerOptions{})
	m, _ = send(t, m, tick(), tick(), tick(), tick())
	first := m.World()

	m, _ = send(t, m, runeKey('r'), tick())
	if m.World() == first {
		t.Fatal("world not rebuilt")
	}
	if m.Seed() != 42 || m.World().Tick() != 1 {
		t.Errorf("restart: seed=%d tick=%d", m.Seed(), m.World().Tick())
	}

	m, _ = send(t, m, runeKey('s'), tick())
	if m.Seed() == 42 {
		t.Error("reseed kept the old seed")
	}
}

func TestViewerBack(t *testing.T) {
	embedded := newTestViewer(t, ViewerOptions{Embedded: true})
	embedded, cmd := send(t, embedded, runeKey('b'))
	if !embedded.Done() || cmd != nil {
		t.Errorf("embedded back: done=%v cmd=%v", embedded.Done(), cmd)
	}

	standalone := newTestViewer(t, ViewerOptions{})
	_, cmd = send(t, standalone, runeKey('b'))
	if cmd == nil {
		t.Fatal("standalone back did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("standalone back did not quit")
	}
}

func TestViewerSavesRunOnQuit(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	m := newTestViewer(t, ViewerOptions{Store: store, Preset: "fixed"})
	m, _ = send(t, m, tick(), tick(), tick(), runeKey('q'))
	// A second quit must not save twice.
	send(t, m, runeKey('q'))

	runs, err := store.RecentRuns("", 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("saved %d runs, want 1", len(runs))
	}
	if runs[0].SceneID != builtin.CrossroadsID || runs[0].Ticks != 3 || runs[0].Seed != 42 || runs[0].Preset != "fixed" {
		t.Errorf("saved run = %+v", runs[0])
	}
}

func TestViewerView(t *testing.T) {
	m := newTestViewer(t, ViewerOptions{})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30}, tick())

	view := m.View()
	if !strings.Contains(view, builtin.CrossroadsID) || !strings.Contains(view, "tick 1") {
		t.Errorf("view missing status line:\n%s", view)
	}
	if !strings.Contains(view, "pause") {
		t.Errorf("view missing help:\n%s", view)
	}
}

func TestViewerFramesMap(t *testing.T) {
	m := newTestViewer(t, ViewerOptions{})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30}, tick())
	m.View()

	top := m.screen.Row(0)
	if !strings.HasPrefix(top, "┌") || !strings.HasSuffix(top, "┐") {
		t.Errorf("top border = %q", top)
	}
	if strings.Contains(top, "PAUSED") {
		t.Error("running viewer shows the paused banner")
	}

	m, _ = send(t, m, runeKey('p'), tick())
	m.View()
	if top := m.screen.Row(0); !strings.Contains(top, " PAUSED ") {
		t.Errorf("paused banner missing from %q", top)
	}
}

func TestFrameInterval(t *testing.T) {
	tests := []struct {
		fps  int
		want time.Duration
	}{
		{60, time.Second / 60},
		{0, time.Second},
		{-5, time.Second},
		{1000, time.Second / maxFrameRate},
	}
	for _, tt := range tests {
		if got := frameInterval(tt.fps); got != tt.want {
			t.Errorf("frameInterval(%d) = %v, want %v", tt.fps, got, tt.want)
		}
	}
}
