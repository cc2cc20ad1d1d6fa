package worldtest

import (
	"testing"

	world "botworld.ai/internal/sim/world"
)

// Collection tests park the robot inside collect range with a Stay brain
// and a reproduction threshold it can never reach.

func collector(h *Harness, energy float64) *world.Robot {
	return h.AddRobot(world.RobotSpec{
		Pos:            world.Vec3{},
		Energy:         energy,
		MaxEnergy:      100,
		ReproThreshold: 1000,
		Brain:          Stay(),
	})
}

func TestCollect_RangeBoundaryIsExclusive(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "collect", Seed: 1})
	r := collector(h, 50)
	edge := h.AddStatic(world.StaticSpec{Pos: world.Vec3{X: 1}, ResourceValue: 20})

	h.StepN(3)

	if got, want := edge.ResourceValue, 20.0; got != want {
		t.Fatalf("node at exactly collect range was drained: got %.1f want %.1f", got, want)
	}
	if got, want := r.Energy, 50.0; got != want {
		t.Fatalf("energy: got %.1f want %.1f", got, want)
	}
}

func TestCollect_EnergyCappedByFreeCapacity(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "collect", Seed: 1})
	r := collector(h, 90)
	node := h.AddStatic(world.StaticSpec{Pos: world.Vec3{X: 0.5}, ResourceValue: 30})

	h.Step()

	if got, want := r.Energy, 100.0; got != want {
		t.Fatalf("energy: got %.1f want %.1f", got, want)
	}
	if got, want := node.ResourceValue, 20.0; got != want {
		t.Fatalf("node value: got %.1f want %.1f", got, want)
	}
	if r.State != world.StateCollecting {
		t.Fatalf("state: got %v want COLLECTING", r.State)
	}

	// Full robots draw nothing, so the node stops depleting.
	h.Step()
	if got, want := node.ResourceValue, 20.0; got != want {
		t.Fatalf("node value after full-robot step: got %.1f want %.1f", got, want)
	}
	if got, want := node.Uses, uint64(1); got != want {
		t.Fatalf("uses: got %d want %d", got, want)
	}
}

func TestCollect_MaterialDrainsWithoutCharging(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "collect", Seed: 1})
	r := collector(h, 50)
	respawn := uint64(30)
	node := h.AddStatic(world.StaticSpec{
		Pos:           world.Vec3{X: 0.5},
		ResourceValue: 20,
		ResourceType:  world.ResourceMaterial,
		RespawnTime:   &respawn,
	})

	h.Step()

	if got, want := r.Energy, 50.0; got != want {
		t.Fatalf("energy: got %.1f want %.1f (material adds no energy)", got, want)
	}
	if r.State != world.StateCollecting {
		t.Fatalf("state: got %v want COLLECTING", r.State)
	}
	if !node.Exhausted() || node.Active() {
		t.Fatalf("node should be exhausted and hidden, got exhausted=%v active=%v",
			node.Exhausted(), node.Active())
	}
	if got, want := h.W.Stats().ResourcesCollected, 20.0; got != want {
		t.Fatalf("collected total: got %.1f want %.1f", got, want)
	}
}

func TestCollect_UptakeAmountCapsEachDraw(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "collect", Seed: 1, UptakeAmount: 5})
	r := collector(h, 50)
	node := h.AddStatic(world.StaticSpec{Pos: world.Vec3{X: 0.5}, ResourceValue: 20})

	h.StepN(2)

	if got, want := r.Energy, 60.0; got != want {
		t.Fatalf("energy: got %.1f want %.1f", got, want)
	}
	if got, want := node.ResourceValue, 10.0; got != want {
		t.Fatalf("node value: got %.1f want %.1f", got, want)
	}
}

func TestCollect_MaxUsesExhaustsWithValueLeft(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "collect", Seed: 1})
	r := collector(h, 50)
	one := uint64(1)
	h.AddStatic(world.StaticSpec{Pos: world.Vec3{X: 0.5}, ResourceValue: 100, MaxUses: &one})

	h.Step()

	if got, want := r.Energy, 100.0; got != want {
		t.Fatalf("energy: got %.1f want %.1f", got, want)
	}
	if _, ok := h.W.Static(2); ok {
		t.Fatalf("single-use node should be removed after its one collection")
	}
}

func TestCollect_OnlyNearestNodePerStep(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "collect", Seed: 1})
	r := collector(h, 50)
	h.AddStatic(world.StaticSpec{Pos: world.Vec3{X: 0.5}, ResourceValue: 10})
	far := h.AddStatic(world.StaticSpec{Pos: world.Vec3{Z: 0.6}, ResourceValue: 10})

	h.Step()

	if got, want := r.Energy, 60.0; got != want {
		t.Fatalf("energy: got %.1f want %.1f", got, want)
	}
	if got, want := far.ResourceValue, 10.0; got != want {
		t.Fatalf("farther node: got %.1f want %.1f, only the nearest is drawn", got, want)
	}
	if got, want := r.Stats.ResourcesCollected, uint64(1); got != want {
		t.Fatalf("collections: got %d want %d", got, want)
	}
}
