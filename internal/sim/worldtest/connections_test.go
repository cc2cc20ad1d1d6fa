package worldtest

import (
	"testing"

	"botworld.ai/internal/sim/brain"
	world "botworld.ai/internal/sim/world"
)

func bondPair(h *Harness, gap float64, a, b brain.Brain) (*world.Robot, *world.Robot) {
	ra := h.AddRobot(world.RobotSpec{
		Pos: world.Vec3{}, ReproThreshold: 1000, Brain: a,
	})
	rb := h.AddRobot(world.RobotSpec{
		Pos: world.Vec3{X: gap}, ReproThreshold: 1000, Brain: b,
	})
	return ra, rb
}

func TestConnections_FormStrictlyWithinThreshold(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "bond", Seed: 1})
	bondPair(h, 2, Stay(), Stay())

	h.StepN(3)

	if got := h.W.ConnectionCount(); got != 0 {
		t.Fatalf("edge formed at exactly connect distance: count %d", got)
	}
}

func TestConnections_FormationStartsWeak(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "bond", Seed: 1})
	ra, rb := bondPair(h, 1.5, Stay(), Stay())

	h.Step()

	c := h.Connection(ra.ID, rb.ID)
	if c.Strength != world.StrengthWeak {
		t.Fatalf("strength: got %v want WEAK", c.Strength)
	}
	if c.Duration != 1 {
		t.Fatalf("duration: got %d want 1", c.Duration)
	}
	if ra.Stats.ConnectionsFormed != 1 || rb.Stats.ConnectionsFormed != 1 {
		t.Fatalf("per-robot counters: a=%d b=%d", ra.Stats.ConnectionsFormed, rb.Stats.ConnectionsFormed)
	}
	// Lifetime counter tracks endpoints, two per edge.
	if got, want := h.W.Stats().ConnectionsMade, uint64(2); got != want {
		t.Fatalf("connections made: got %d want %d", got, want)
	}
}

func TestConnections_StrengthenOnContactCadence(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "bond", Seed: 1, StrengthenEvery: 2})
	ra, rb := bondPair(h, 0.5, Stay(), Stay())

	h.StepN(2)
	if got := h.Connection(ra.ID, rb.ID).Strength; got != world.StrengthMedium {
		t.Fatalf("after 2 steps: got %v want MEDIUM", got)
	}
	h.StepN(2)
	if got := h.Connection(ra.ID, rb.ID).Strength; got != world.StrengthStrong {
		t.Fatalf("after 4 steps: got %v want STRONG", got)
	}
	h.StepN(2)
	if got := h.Connection(ra.ID, rb.ID).Strength; got != world.StrengthPermanent {
		t.Fatalf("after 6 steps: got %v want PERMANENT", got)
	}
	h.StepN(4)
	if got := h.Connection(ra.ID, rb.ID).Strength; got != world.StrengthPermanent {
		t.Fatalf("permanent is the cap: got %v", got)
	}
}

func TestConnections_SlackZoneHoldsThenSeparationDissolves(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "bond", Seed: 1})
	ra, rb := bondPair(h, 0.5, Stay(), Walk(brain.MoveXPos, 4))

	h.Step() // b at 1.5, edge forms
	if got := h.Connection(ra.ID, rb.ID).Strength; got != world.StrengthWeak {
		t.Fatalf("strength: got %v want WEAK", got)
	}

	h.StepN(2) // b at 3.5, between connect and break: the bond holds
	c := h.Connection(ra.ID, rb.ID)
	if c.Strength != world.StrengthWeak || c.Separation != 0 {
		t.Fatalf("slack zone: got strength=%v separation=%d", c.Strength, c.Separation)
	}

	h.Step() // b at 4.5, beyond break: weak drops to none and the edge goes
	if got := h.W.ConnectionCount(); got != 0 {
		t.Fatalf("edge should have dissolved: count %d", got)
	}
	if peers := h.W.ConnectionsOf(ra.ID); len(peers) != 0 {
		t.Fatalf("stale adjacency: %v", peers)
	}
}

func TestConnections_PermanentSurvivesSeparation(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "bond", Seed: 1, StrengthenEvery: 1})
	ra, rb := bondPair(h, 0.5, Stay(), Script(
		brain.Stay, brain.Stay, brain.Stay,
		brain.MoveXPos, brain.MoveXPos, brain.MoveXPos, brain.MoveXPos, brain.MoveXPos,
	))

	h.StepN(8)

	c := h.Connection(ra.ID, rb.ID)
	if c.Strength != world.StrengthPermanent {
		t.Fatalf("strength: got %v want PERMANENT", c.Strength)
	}
	if c.Separation != 2 {
		t.Fatalf("separation: got %d want 2", c.Separation)
	}
	if rb.Pos.X != 5.5 {
		t.Fatalf("mover position: got %.1f want 5.5", rb.Pos.X)
	}
}

func TestConnections_DeathDropsEdges(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{Name: "bond", Seed: 1})
	ra, rb := bondPair(h, 0.5, Stay(), Stay())
	h.Step()
	if got := h.W.ConnectionCount(); got != 1 {
		t.Fatalf("edge count: got %d want 1", got)
	}

	rb.Energy = 0.5
	rb.MoveCost = 1
	rb.Brain = Script(brain.MoveXPos)

	h.Step() // lethal move, edges survive while the body is visible
	if rb.State != world.StateDead {
		t.Fatalf("state: got %v want DEAD", rb.State)
	}

	h.Step() // cleanup removes the body and its edges
	if _, ok := h.W.Robot(rb.ID); ok {
		t.Fatalf("dead robot should be gone")
	}
	if got := h.W.ConnectionCount(); got != 0 {
		t.Fatalf("edges of a removed robot must drop: count %d", got)
	}
	if peers := h.W.ConnectionsOf(ra.ID); len(peers) != 0 {
		t.Fatalf("stale adjacency: %v", peers)
	}
}
