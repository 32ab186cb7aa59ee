package core

import "testing"

func TestInputFrame(t *testing.T) {
	var f InputFrame
	if f.Has(ActionPause) || !f.Empty() {
		t.Fatal("zero frame should be empty")
	}

	f.Set(ActionNone)
	if !f.Empty() {
		t.Error("ActionNone should not be recorded")
	}

	f.Set(ActionPause)
	f.Set(ActionStep)
	if !f.Has(ActionPause) || !f.Has(ActionStep) || f.Has(ActionQuit) {
		t.Errorf("unexpected frame contents: %v", f.Actions)
	}

	f.Clear()
	if !f.Empty() {
		t.Errorf("after Clear, frame = %v", f.Actions)
	}
}

func TestActionString(t *testing.T) {
	tests := map[Action]string{
		ActionNone:   "None",
		ActionPause:  "Pause",
		ActionFaster: "Faster",
		ActionReseed: "Reseed",
		ActionQuit:   "Quit",
		Action(99):   "Unknown",
	}
	for a, want := range tests {
		if got := a.String(); got != want {
			t.Errorf("Action(%d).String() = %q, expected %q", int(a), got, want)
		}
	}
}
