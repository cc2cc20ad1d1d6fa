package world

import "fmt"

// verifyInvariants checks the structural guarantees the systems rely on.
// It runs at the end of every step; a violation stops the loop rather
// than letting a corrupt state replicate into snapshots and digests.
func (w *World) verifyInvariants() error {
	for _, id := range w.sortedRobotIDs() {
		r := w.robots[id]
		if r.ID != id {
			return fmt.Errorf("robot %d carries id %d: %w", id, r.ID, ErrInvariant)
		}
		if r.Energy < 0 || r.Energy > r.MaxEnergy {
			return fmt.Errorf("robot %d energy %.3f outside [0, %.3f]: %w", id, r.Energy, r.MaxEnergy, ErrInvariant)
		}
		p, ok := w.index.Position(id)
		if !ok || p != r.Pos {
			return fmt.Errorf("robot %d position desynced from index: %w", id, ErrInvariant)
		}
		if w.cfg.Bounds != nil && !w.cfg.Bounds.Contains(r.Pos) {
			return fmt.Errorf("robot %d escaped bounds at %v: %w", id, r.Pos, ErrInvariant)
		}
	}

	visible := 0
	for _, id := range w.sortedStaticIDs() {
		s := w.statics[id]
		p, ok := w.index.Position(id)
		if s.hidden {
			if ok {
				return fmt.Errorf("hidden static %d still indexed: %w", id, ErrInvariant)
			}
			continue
		}
		visible++
		if !ok || p != s.Pos {
			return fmt.Errorf("static %d position desynced from index: %w", id, ErrInvariant)
		}
	}
	if want := len(w.robots) + visible; w.index.Len() != want {
		return fmt.Errorf("index holds %d entries, want %d: %w", w.index.Len(), want, ErrInvariant)
	}

	adjacency := 0
	for k, c := range w.conns.edges {
		if c.A != k.A || c.B != k.B || c.A >= c.B {
			return fmt.Errorf("edge %d-%d has no canonical form: %w", c.A, c.B, ErrInvariant)
		}
		if c.Strength == StrengthNone || c.Strength > StrengthPermanent {
			return fmt.Errorf("edge %d-%d at strength %d: %w", c.A, c.B, c.Strength, ErrInvariant)
		}
		if _, ok := w.robots[c.A]; !ok {
			return fmt.Errorf("edge %d-%d endpoint %d gone: %w", c.A, c.B, c.A, ErrInvariant)
		}
		if _, ok := w.robots[c.B]; !ok {
			return fmt.Errorf("edge %d-%d endpoint %d gone: %w", c.A, c.B, c.B, ErrInvariant)
		}
		if w.conns.byRobot[c.A][c.B] != c || w.conns.byRobot[c.B][c.A] != c {
			return fmt.Errorf("edge %d-%d adjacency asymmetric: %w", c.A, c.B, ErrInvariant)
		}
	}
	for id, m := range w.conns.byRobot {
		adjacency += len(m)
		for peer, c := range m {
			if w.conns.edges[makePairKey(id, peer)] != c {
				return fmt.Errorf("adjacency %d-%d points at stale edge: %w", id, peer, ErrInvariant)
			}
		}
	}
	if adjacency != 2*len(w.conns.edges) {
		return fmt.Errorf("adjacency count %d for %d edges: %w", adjacency, len(w.conns.edges), ErrInvariant)
	}

	return nil
}
