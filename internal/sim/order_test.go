package sim

import (
	"sort"
	"testing"

	"github.com/vovakirdan/tui-traffic/internal/scene"
	"github.com/vovakirdan/tui-traffic/internal/scene/builtin"
)

func sortedViews(w *World) []VehicleView {
	views := w.Frame().Vehicles
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

func sameVehicles(t *testing.T, tick uint64, a, b []VehicleView) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("tick %d: %d vehicles vs %d", tick, len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("tick %d: vehicle %d diverged:\n%+v\n%+v", tick, a[i].ID, a[i], b[i])
		}
	}
}

// Reversing the vehicle list before every step must not change the outcome.
func TestIterationOrderDoesNotMatter(t *testing.T) {
	for _, factory := range []func() *scene.Scene{builtin.Crossroads, builtin.StopSignJunction} {
		sc := factory()
		t.Run(sc.ID, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Seed = 99

			forward, err := New(factory(), cfg)
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}
			reversed, err := New(factory(), cfg)
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}

			for tick := uint64(1); tick <= 1800; tick++ {
				vs := reversed.vehicles
				for i, j := 0, len(vs)-1; i < j; i, j = i+1, j-1 {
					vs[i], vs[j] = vs[j], vs[i]
				}

				if _, err := forward.Step(); err != nil {
					t.Fatalf("forward Step() failed: %v", err)
				}
				if _, err := reversed.Step(); err != nil {
					t.Fatalf("reversed Step() failed: %v", err)
				}
				sameVehicles(t, tick, sortedViews(forward), sortedViews(reversed))
			}
		})
	}
}

func TestSameSeedSameRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 7

	a, err := New(builtin.Crossroads(), cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	b, err := New(builtin.Crossroads(), cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := a.Run(1200); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if err := b.Run(1200); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	sameVehicles(t, 1200, sortedViews(a), sortedViews(b))
	if a.Stats() != b.Stats() {
		t.Errorf("stats differ: %+v vs %+v", a.Stats(), b.Stats())
	}
}

func TestVehicleCountConserved(t *testing.T) {
	w, err := New(builtin.Crossroads(), DefaultConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if len(w.vehicles) != len(w.scene.Spawns) {
		t.Fatalf("prefill placed %d vehicles, expected %d", len(w.vehicles), len(w.scene.Spawns))
	}

	for i := 0; i < 3600; i++ {
		res, err := w.Step()
		if err != nil {
			t.Fatalf("Step() failed: %v", err)
		}
		st := w.Stats()
		if st.Spawned-st.Exited != res.Vehicles {
			t.Fatalf("tick %d: spawned %d exited %d but %d on the network", res.Tick, st.Spawned, st.Exited, res.Vehicles)
		}
		if len(w.rngs) != res.Vehicles || len(w.born) != res.Vehicles {
			t.Fatalf("tick %d: per-vehicle state leaked: %d rngs, %d vehicles", res.Tick, len(w.rngs), res.Vehicles)
		}
		for _, v := range w.vehicles {
			if v.Speed() < 0 || v.Speed() > 20 {
				t.Fatalf("tick %d: speed %v out of range", res.Tick, v.Speed())
			}
		}
	}

	st := w.Stats()
	if st.Exited == 0 || st.Throughput() <= 0 {
		t.Errorf("no traffic got through: %+v", st)
	}
	if st.MeanSpeed() <= 0 || st.MeanSpeed() > 20 {
		t.Errorf("mean speed = %v", st.MeanSpeed())
	}
}
