package world

// systemMovement applies staged actions. Movers pay the energy cost up
// front whether or not the move lands; a move is rejected when its target
// cell holds an obstacle or another robot's pre-move position, and two
// movers contending for one cell resolve to the higher id. Losers and
// blocked movers finish the step idle with no refund.
func (w *World) systemMovement(now uint64, staged []stagedAction) {
	obstacles := map[cellKey]bool{}
	for _, id := range w.sortedStaticIDs() {
		s := w.statics[id]
		if s.IsObstacle && !s.hidden {
			obstacles[occupiedCell(s.Pos)] = true
		}
	}

	// Pre-move robot cells: moving into any of these is blocked, so two
	// robots can never swap through each other.
	robotCells := map[cellKey]ElementID{}
	for _, id := range w.sortedRobotIDs() {
		robotCells[occupiedCell(w.robots[id].Pos)] = id
	}

	type pendingMove struct {
		id     ElementID
		target Vec3
		delta  Vec3
	}
	var pending []pendingMove

	for _, sa := range staged {
		r := w.robots[sa.id]
		if r == nil || !r.Alive() {
			continue
		}
		r.Vel = Vec3{}
		r.State = StateIdle

		dx, dy, dz := sa.act.Delta()
		if dx == 0 && dy == 0 && dz == 0 {
			continue
		}
		delta := Vec3{dx, dy, dz}

		r.drain(r.MoveCost * delta.Len())
		if !r.Alive() {
			continue
		}

		target := r.Pos.Add(delta)
		if w.cfg.Bounds != nil {
			target = w.cfg.Bounds.Clamp(target)
		}
		cell := occupiedCell(target)
		if obstacles[cell] {
			continue
		}
		if occupant, ok := robotCells[cell]; ok && occupant != r.ID {
			continue
		}
		pending = append(pending, pendingMove{id: r.ID, target: target, delta: delta})
	}

	// Contention: the highest id claims the cell, everyone else yields.
	winners := map[cellKey]ElementID{}
	for _, pm := range pending {
		cell := occupiedCell(pm.target)
		if cur, ok := winners[cell]; !ok || pm.id > cur {
			winners[cell] = pm.id
		}
	}

	for _, pm := range pending {
		if winners[occupiedCell(pm.target)] != pm.id {
			continue
		}
		r := w.robots[pm.id]
		moved := pm.target.Sub(r.Pos)
		r.Pos = pm.target
		r.Vel = pm.delta
		r.State = StateMoving
		r.Stats.DistanceTraveled += moved.Len()
		w.index.Move(r.ID, r.Pos)
		w.stats.RecordMove(now)
	}
}
