package worldtest

import (
	"errors"
	"testing"

	"botworld.ai/internal/sim/brain"
	world "botworld.ai/internal/sim/world"
)

func TestLifecycle_DecayExhaustsAndRemoves(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "life", Seed: 1})
	node := h.AddStatic(world.StaticSpec{Pos: world.Vec3{X: 5}, ResourceValue: 5, DecayRate: 2})

	h.StepN(2)
	if got, want := node.ResourceValue, 1.0; got != want {
		t.Fatalf("value after decay: got %.1f want %.1f", got, want)
	}

	h.Step()
	if _, ok := h.W.Static(node.ID); ok {
		t.Fatalf("decayed-out node without respawn should be removed")
	}
	if got := h.W.StaticCount(); got != 0 {
		t.Fatalf("static count: got %d want 0", got)
	}
}

func TestLifecycle_RespawnCycleRestoresInitialValue(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "life", Seed: 1})
	respawn := uint64(3)
	node := h.AddStatic(world.StaticSpec{
		Pos:           world.Vec3{X: 5},
		ResourceValue: 4,
		DecayRate:     4,
		RespawnTime:   &respawn,
	})

	h.Step()
	if node.Active() || !node.Exhausted() {
		t.Fatalf("node should be hidden awaiting respawn, got active=%v exhausted=%v",
			node.Active(), node.Exhausted())
	}

	h.StepN(2)
	if node.Active() {
		t.Fatalf("node reappeared before its countdown ran out")
	}

	h.Step()
	if !node.Active() {
		t.Fatalf("node should have respawned")
	}
	if got, want := node.ResourceValue, 4.0; got != want {
		t.Fatalf("respawned value: got %.1f want %.1f", got, want)
	}
	if node.Exhausted() {
		t.Fatalf("respawned node still marked exhausted")
	}
}

func TestLifecycle_DeathIsVisibleForOneStep(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "life", Seed: 1})
	r := h.AddRobot(world.RobotSpec{
		Pos: world.Vec3{}, Energy: 1, ReproThreshold: 1000,
		Brain: Script(brain.MoveXPos),
	})

	h.Step()
	if got := h.W.RobotCount(); got != 1 {
		t.Fatalf("dead robot should stay visible through its final step, count %d", got)
	}
	if r.State != world.StateDead {
		t.Fatalf("state: got %v want DEAD", r.State)
	}

	h.Step()
	if _, ok := h.W.Robot(r.ID); ok {
		t.Fatalf("dead robot should be cleaned up on the next step")
	}
	totals := h.W.Stats()
	if totals.RobotsDestroyed != 1 {
		t.Fatalf("robots destroyed: got %d want 1", totals.RobotsDestroyed)
	}

	// Ids are never reused, even after a death.
	next := h.AddRobot(world.RobotSpec{Pos: world.Vec3{X: 2}, Brain: Stay()})
	if next.ID <= r.ID {
		t.Fatalf("id reuse: new robot got %d after %d died", next.ID, r.ID)
	}
}

func TestLifecycle_RemoveElement(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "life", Seed: 1})
	r := h.AddRobot(world.RobotSpec{Pos: world.Vec3{}, Brain: Stay()})
	s := h.AddStatic(world.StaticSpec{Pos: world.Vec3{X: 3}})

	if err := h.W.RemoveElement(r.ID); err != nil {
		t.Fatalf("remove robot: %v", err)
	}
	if err := h.W.RemoveElement(s.ID); err != nil {
		t.Fatalf("remove static: %v", err)
	}
	if h.W.RobotCount() != 0 || h.W.StaticCount() != 0 {
		t.Fatalf("counts after removal: robots=%d statics=%d", h.W.RobotCount(), h.W.StaticCount())
	}
	// An operator removal is not a death.
	if got := h.W.Stats().RobotsDestroyed; got != 0 {
		t.Fatalf("robots destroyed: got %d want 0", got)
	}
	if err := h.W.RemoveElement(999); !errors.Is(err, world.ErrNotFound) {
		t.Fatalf("remove unknown: got %v want ErrNotFound", err)
	}
}
