package world

import "botworld.ai/internal/sim/brain"

// systemReproduction gives every eligible robot one reproduction attempt
// per step, ascending by id. A robot holding a STRONG or better bond to a
// nearby eligible partner produces a crossover child; otherwise it clones
// itself. Newborns and both parents are spent for this step.
func (w *World) systemReproduction(now uint64) {
	spent := map[ElementID]bool{}
	for _, id := range w.sortedRobotIDs() {
		if spent[id] {
			continue
		}
		r := w.robots[id]
		if r == nil || !r.readyToReproduce(now) {
			continue
		}
		if len(w.robots) >= w.cfg.MaxPopulation {
			break
		}

		if partner := w.crossoverPartner(r, now, spent); partner != nil {
			if child := w.crossover(r, partner, now); child != nil {
				spent[id] = true
				spent[partner.ID] = true
				spent[child.ID] = true
			}
			continue
		}

		if child := w.clone(r, now); child != nil {
			spent[id] = true
			spent[child.ID] = true
		}
	}
}

// crossoverPartner returns the lowest-id peer bound at STRONG or better
// that is itself ready, unspent, and still within proximity.
func (w *World) crossoverPartner(r *Robot, now uint64, spent map[ElementID]bool) *Robot {
	for _, pid := range w.conns.peers(r.ID) {
		if spent[pid] {
			continue
		}
		c := w.conns.get(r.ID, pid)
		if c == nil || c.Strength < StrengthStrong {
			continue
		}
		p := w.robots[pid]
		if p == nil || !p.readyToReproduce(now) {
			continue
		}
		if r.Pos.Dist(p.Pos) >= w.cfg.ProximityThreshold {
			continue
		}
		return p
	}
	return nil
}

// clone produces a single-parent child next to the parent. The brain is
// cloned before any cost is paid so a failure leaves the parent intact.
func (w *World) clone(r *Robot, now uint64) *Robot {
	childBrain := r.Brain.Clone()
	w.mutateBrain(childBrain)

	r.drain(w.cfg.CloneEnergyCost)

	child := w.spawnChild(RobotSpec{
		Pos:            w.jitter(r.Pos, w.cfg.SpawnJitter),
		Color:          &Color{R: r.Color.R, G: r.Color.G, B: r.Color.B},
		MaxEnergy:      w.mutateTrait(r.MaxEnergy),
		MoveCost:       w.mutateTrait(r.MoveCost),
		ReproThreshold: w.mutateTrait(r.ReproThreshold),
		Brain:          childBrain,
	}, now)
	if child == nil {
		return nil
	}

	r.State = StateReproducing
	r.NextReproTick = now + w.cfg.ReproCooldownSteps
	r.Stats.OffspringProduced++
	w.stats.RecordOffspring(now)
	return child
}

// crossover produces a child from two bonded parents: traits averaged
// then mutated, brains merged, spawned at the jittered midpoint. A brain
// merge failure aborts before any energy is spent.
func (w *World) crossover(a, b *Robot, now uint64) *Robot {
	merged, err := brain.Merge(a.Brain, b.Brain)
	if err != nil {
		w.log.Printf("crossover %d+%d brain merge: %v", a.ID, b.ID, err)
		return nil
	}
	w.mutateBrain(merged)

	a.drain(w.cfg.CrossoverEnergyCost)
	b.drain(w.cfg.CrossoverEnergyCost)

	mid := a.Pos.Add(b.Pos).Scale(0.5)
	color := a.Color.Mix(b.Color)
	child := w.spawnChild(RobotSpec{
		Pos:            w.jitter(mid, w.cfg.SpawnJitter),
		Color:          &color,
		MaxEnergy:      w.mutateTrait((a.MaxEnergy + b.MaxEnergy) / 2),
		MoveCost:       w.mutateTrait((a.MoveCost + b.MoveCost) / 2),
		ReproThreshold: w.mutateTrait((a.ReproThreshold + b.ReproThreshold) / 2),
		Brain:          merged,
	}, now)
	if child == nil {
		return nil
	}

	for _, parent := range []*Robot{a, b} {
		parent.State = StateReproducing
		parent.NextReproTick = now + w.cfg.ReproCooldownSteps
		parent.Stats.OffspringProduced++
	}
	w.stats.RecordOffspring(now)
	return child
}

// spawnChild adds the offspring with its starting energy fraction and
// cooldown applied. Capacity was checked by the caller's loop; a race
// against it simply drops the child.
func (w *World) spawnChild(spec RobotSpec, now uint64) *Robot {
	spec.Energy = spec.MaxEnergy * w.cfg.OffspringEnergyFrac
	child, err := w.AddRobot(spec)
	if err != nil {
		w.log.Printf("spawn child: %v", err)
		return nil
	}
	child.NextReproTick = now + w.cfg.ReproCooldownSteps
	return child
}

func (w *World) mutateBrain(b brain.Brain) {
	if w.cfg.BrainMutationRate <= 0 {
		return
	}
	if m, ok := b.(brain.Mutator); ok {
		m.Mutate(w.rng, w.cfg.BrainMutationRate)
	}
}

// mutateTrait jitters an inherited trait by up to ±MutationRate.
func (w *World) mutateTrait(v float64) float64 {
	return v * (1 + (w.rng.Float64()*2-1)*w.cfg.MutationRate)
}

// jitter offsets each axis by up to ±amount.
func (w *World) jitter(p Vec3, amount float64) Vec3 {
	return Vec3{
		X: p.X + (w.rng.Float64()*2-1)*amount,
		Y: p.Y + (w.rng.Float64()*2-1)*amount,
		Z: p.Z + (w.rng.Float64()*2-1)*amount,
	}
}
