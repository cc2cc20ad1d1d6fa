package world

// systemInteraction runs two passes over the robots in ascending id
// order: resource collection, then connection maintenance and formation.
func (w *World) systemInteraction(now uint64) {
	w.collectResources(now)
	w.maintainConnections(now)
	w.formConnections(now)
}

// collectResources lets each robot draw from the single nearest
// collectible strictly within collect range. ENERGY nodes transfer up to
// the robot's free capacity; MATERIAL and SPECIAL nodes are drained
// without charging the robot. Ties on distance keep the lower id.
func (w *World) collectResources(now uint64) {
	for _, id := range w.sortedRobotIDs() {
		r := w.robots[id]
		if !r.Alive() {
			continue
		}

		var target *StaticElement
		best := -1.0
		w.scratch = w.index.QueryRadiusInto(w.scratch, r.Pos, w.cfg.CollectRange)
		for _, sid := range w.scratch {
			s, ok := w.statics[sid]
			if !ok || !s.collectible() {
				continue
			}
			d := r.Pos.Dist(s.Pos)
			if d >= w.cfg.CollectRange {
				continue
			}
			if best < 0 || d < best {
				best = d
				target = s
			}
		}
		if target == nil {
			continue
		}

		amount := target.ResourceValue
		if target.ResourceType == ResourceEnergy {
			space := r.MaxEnergy - r.Energy
			if amount > space {
				amount = space
			}
		}
		if w.cfg.UptakeAmount > 0 && amount > w.cfg.UptakeAmount {
			amount = w.cfg.UptakeAmount
		}
		if amount <= 0 {
			continue
		}

		target.ResourceValue -= amount
		target.Uses++
		if target.ResourceType == ResourceEnergy {
			r.Energy += amount
		}
		r.State = StateCollecting
		r.Stats.ResourcesCollected++
		w.stats.RecordCollection(now, amount)

		if target.ResourceValue <= 0 {
			target.exhaust()
		}
		if target.MaxUses != nil && target.Uses >= *target.MaxUses {
			target.exhaust()
		}
	}
}

// maintainConnections walks the existing edges in canonical order. Within
// connect distance the bond accrues duration and strengthens on cadence;
// in the slack zone between connect and break it holds; beyond break
// distance it weakens on cadence and dissolves at zero.
func (w *World) maintainConnections(now uint64) {
	for _, k := range w.conns.sortedKeys() {
		c := w.conns.edges[k]
		a, b := w.robots[k.A], w.robots[k.B]
		d := a.Pos.Dist(b.Pos)
		c.LastDistance = d

		switch {
		case d < w.cfg.ConnectThreshold:
			c.Separation = 0
			c.Duration++
			if c.Duration%w.cfg.StrengthenEvery == 0 && c.Strength < StrengthPermanent {
				c.Strength++
			}
		case d <= w.cfg.BreakThreshold:
			c.Separation = 0
		default:
			c.Separation++
			if c.Separation%w.cfg.WeakenEvery != 0 {
				continue
			}
			if c.Strength == StrengthPermanent {
				continue
			}
			if c.Strength > StrengthNone {
				c.Strength--
			}
			if c.Strength == StrengthNone {
				w.conns.remove(k.A, k.B)
				w.stats.RecordDisconnection(now)
				w.stats.RecordDisconnection(now)
			}
		}
	}
}

// formConnections creates weak edges between unconnected robots strictly
// within connect distance of each other.
func (w *World) formConnections(now uint64) {
	for _, id := range w.sortedRobotIDs() {
		r := w.robots[id]
		if !r.Alive() {
			continue
		}
		w.scratch = w.index.QueryRadiusInto(w.scratch, r.Pos, w.cfg.ConnectThreshold)
		for _, oid := range w.scratch {
			if oid <= id {
				continue
			}
			o, ok := w.robots[oid]
			if !ok || !o.Alive() {
				continue
			}
			d := r.Pos.Dist(o.Pos)
			if d >= w.cfg.ConnectThreshold {
				continue
			}
			c, created := w.conns.ensure(id, oid)
			if !created {
				continue
			}
			c.Strength = StrengthWeak
			c.Duration = 1
			c.LastDistance = d
			r.Stats.ConnectionsFormed++
			o.Stats.ConnectionsFormed++
			w.stats.RecordConnection(now)
			w.stats.RecordConnection(now)
		}
	}
}
