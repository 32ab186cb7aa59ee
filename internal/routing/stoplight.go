package routing

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// GraceTime is the length of the all-stop window, in seconds, before a
// stoplight hands right-of-way to the other axis.
const GraceTime = 2.5

// graceTicks is GraceTime at the assumed tick rate.
const graceTicks = uint32(GraceTime * TickRate)

// amberTicks marks the start of the last second of the grace window.
const amberTicks = uint32((GraceTime - 1) * TickRate)

// Phase is the presentation state of a stoplight.
type Phase uint8

const (
	PhaseGo    Phase = iota // privileged axis moving, no grace
	PhaseAmber              // grace active, more than a second left
	PhaseStop               // last second of grace
)

// String returns the string representation of a phase.
func (p Phase) String() string {
	switch p {
	case PhaseGo:
		return "Go"
	case PhaseAmber:
		return "Amber"
	case PhaseStop:
		return "Stop"
	default:
		return "Unknown"
	}
}

// Stoplight alternates right-of-way between the two axes of a junction.
// Every frequency seconds it enters a grace window during which every
// approach is gated; when the window closes the privileged axis flips.
type Stoplight struct {
	pos       mgl64.Vec2
	frequency float64
	axis      Axis
	grace     uint32
	inGrace   bool
}

// NewStoplight creates a stoplight centered on a tile corner, in tile units.
// Vertical traffic starts with right-of-way.
func NewStoplight(pos mgl64.Vec2, frequency float64) Stoplight {
	return Stoplight{
		pos:       pos,
		frequency: frequency,
		axis:      Vertical,
	}
}

// Pos returns the light center in tile units.
func (l Stoplight) Pos() mgl64.Vec2 { return l.pos }

// Frequency returns the cycle trigger interval in seconds.
func (l Stoplight) Frequency() float64 { return l.frequency }

// Axis returns the axis holding right-of-way.
func (l Stoplight) Axis() Axis { return l.axis }

// GracePeriod reports whether the light is transitioning.
func (l Stoplight) GracePeriod() bool { return l.inGrace }

// Grace returns the grace counter and whether it is running.
func (l Stoplight) Grace() (uint32, bool) {
	return l.grace, l.inGrace
}

// NearThreshold reports whether the grace counter is within the last second
// of the window. It only affects presentation.
func (l Stoplight) NearThreshold() bool {
	return l.inGrace && l.grace >= amberTicks
}

// Phase returns the presentation phase.
func (l Stoplight) Phase() Phase {
	switch {
	case !l.inGrace:
		return PhaseGo
	case l.NearThreshold():
		return PhaseStop
	default:
		return PhaseAmber
	}
}

// AllBounds returns the four gating segments.
func (l Stoplight) AllBounds() DirBounds {
	return NewDirBounds(l.pos)
}

// Bounds returns the segment pair gating the axis without right-of-way.
func (l Stoplight) Bounds() (Segment, Segment) {
	return l.AllBounds().OppAxis(l.axis)
}

// Blocks reports whether a vehicle leaving along outgoing with the given
// look-ahead envelope must yield. Outside grace, traffic on the privileged
// axis is never tested; during grace every approach is gated.
func (l Stoplight) Blocks(outgoing Cardinal, envelope Shape) bool {
	if l.inGrace {
		return l.AllBounds().Colliding(envelope)
	}
	if outgoing.OnAxis(l.axis) {
		return false
	}
	a, b := l.Bounds()
	return Collides(envelope, a.Shape()) || Collides(envelope, b.Shape())
}

// Update advances the light. tick is the driver's tick counter.
func (l *Stoplight) Update(tick uint64) {
	if l.inGrace {
		if l.grace >= graceTicks {
			l.inGrace = false
			l.grace = 0
			l.axis = l.axis.Flip()
		} else {
			l.grace++
		}
		return
	}

	if math.Mod(float64(tick), l.frequency*TickRate) == 0 {
		l.inGrace = true
		l.grace = 0
	}
}
