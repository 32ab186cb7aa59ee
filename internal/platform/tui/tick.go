// Package tui provides the Bubble Tea front end for the traffic simulator:
// the live viewer, the scene picker, the runs board and the SSH server that
// serves them.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// maxFrameRate caps how often the viewer redraws. Faster playback comes from
// stepping several ticks per frame instead.
const maxFrameRate = 120

// TickMsg asks the viewer for its next frame.
type TickMsg time.Time

// frameInterval is the delay between frames at fps, clamped to 1..maxFrameRate.
func frameInterval(fps int) time.Duration {
	fps = min(max(fps, 1), maxFrameRate)
	return time.Second / time.Duration(fps)
}

func tickCmd(fps int) tea.Cmd {
	return tea.Tick(frameInterval(fps), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
