package world

import "botworld.ai/internal/persistence/snapshot"

// ExportSnapshot captures the complete current state as a versioned
// document. Loop goroutine only.
func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.Name,
			Tick:    w.tick.Load(),
		},
		Seed:        w.cfg.Seed,
		NextID:      w.nextID.Load() + 1,
		Params:      w.exportParams(),
		Robots:      make([]snapshot.RobotV1, 0, len(w.robots)),
		Statics:     make([]snapshot.StaticV1, 0, len(w.statics)),
		Connections: make([]snapshot.ConnectionV1, 0, w.conns.count()),
	}

	for _, id := range w.sortedRobotIDs() {
		r := w.robots[id]
		rv := snapshot.RobotV1{
			ID:             uint64(id),
			Pos:            r.Pos.Array(),
			Color:          r.Color.Array(),
			Velocity:       r.Vel.Array(),
			Energy:         r.Energy,
			MaxEnergy:      r.MaxEnergy,
			MoveCost:       r.MoveCost,
			ReproThreshold: r.ReproThreshold,
			State:          r.State.String(),
			NextReproTick:  r.NextReproTick,
			Stats: snapshot.RobotStatsV1{
				DistanceTraveled:   r.Stats.DistanceTraveled,
				ResourcesCollected: r.Stats.ResourcesCollected,
				OffspringProduced:  r.Stats.OffspringProduced,
				ConnectionsFormed:  r.Stats.ConnectionsFormed,
				EnergyConsumed:     r.Stats.EnergyConsumed,
				BornTick:           r.Stats.BornTick,
			},
		}
		if r.Brain != nil {
			params, err := r.Brain.Export()
			if err != nil {
				w.log.Printf("export robot %d brain: %v", id, err)
				rv.Brain = &snapshot.BrainV1{Kind: r.Brain.Kind()}
			} else {
				rv.Brain = &snapshot.BrainV1{Kind: r.Brain.Kind(), Params: params}
			}
		}
		snap.Robots = append(snap.Robots, rv)
	}

	for _, id := range w.sortedStaticIDs() {
		s := w.statics[id]
		snap.Statics = append(snap.Statics, snapshot.StaticV1{
			ID:            uint64(id),
			Pos:           s.Pos.Array(),
			Color:         s.Color.Array(),
			ResourceValue: s.ResourceValue,
			InitialValue:  s.InitialValue,
			ResourceType:  string(s.ResourceType),
			DecayRate:     s.DecayRate,
			RespawnTime:   copyU64(s.RespawnTime),
			MaxUses:       copyU64(s.MaxUses),
			Uses:          s.Uses,
			IsObstacle:    s.IsObstacle,
			IsCollectible: s.IsCollectible,
			Exhausted:     s.exhausted,
			Hidden:        s.hidden,
			RespawnLeft:   s.respawnLeft,
		})
	}

	for _, k := range w.conns.sortedKeys() {
		c := w.conns.edges[k]
		snap.Connections = append(snap.Connections, snapshot.ConnectionV1{
			A:            uint64(c.A),
			B:            uint64(c.B),
			Strength:     int(c.Strength),
			Duration:     c.Duration,
			LastDistance: c.LastDistance,
			Separation:   c.Separation,
		})
	}

	t := w.stats.Totals()
	snap.Stats = snapshot.WorldStatsV1{
		Steps:              t.Steps,
		RobotsCreated:      t.RobotsCreated,
		RobotsDestroyed:    t.RobotsDestroyed,
		ResourcesCollected: t.ResourcesCollected,
		ConnectionsMade:    t.ConnectionsMade,
		OffspringProduced:  t.OffspringProduced,
	}
	return snap
}

func (w *World) exportParams() *snapshot.ParamsV1 {
	p := &snapshot.ParamsV1{
		SensorRadius:        w.cfg.SensorRadius,
		ProximityThreshold:  w.cfg.ProximityThreshold,
		CollectRange:        w.cfg.CollectRange,
		ConnectThreshold:    w.cfg.ConnectThreshold,
		BreakThreshold:      w.cfg.BreakThreshold,
		StrengthenEvery:     w.cfg.StrengthenEvery,
		WeakenEvery:         w.cfg.WeakenEvery,
		CloneEnergyCost:     w.cfg.CloneEnergyCost,
		CrossoverEnergyCost: w.cfg.CrossoverEnergyCost,
		OffspringEnergyFrac: w.cfg.OffspringEnergyFrac,
		MutationRate:        w.cfg.MutationRate,
		BrainMutationRate:   w.cfg.BrainMutationRate,
		ReproCooldownSteps:  w.cfg.ReproCooldownSteps,
		SpawnJitter:         w.cfg.SpawnJitter,
		MaxPopulation:       w.cfg.MaxPopulation,
		CellSize:            w.cfg.CellSize,
		UptakeAmount:        w.cfg.UptakeAmount,
		StepRateHz:          w.cfg.StepRateHz,
	}
	if w.cfg.Bounds != nil {
		p.Bounds = &snapshot.BoundsV1{
			Min: w.cfg.Bounds.Min.Array(),
			Max: w.cfg.Bounds.Max.Array(),
		}
	}
	return p
}
