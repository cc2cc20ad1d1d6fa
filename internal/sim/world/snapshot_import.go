package world

import (
	"fmt"
	"math/rand"

	"botworld.ai/internal/persistence/snapshot"
	"botworld.ai/internal/sim/brain"
)

// ImportSnapshot replaces the whole world state with the document's
// contents. Validation is all-or-nothing: the document is checked and
// staged in full first, and on any error the world keeps its previous
// state untouched.
//
// The world adopts the document's seed, name and tick, and the step RNG is
// reseeded from seed plus tick so a resumed run and a fresh replay of the
// same document walk the same trajectory.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("version %d: %w", snap.Header.Version, ErrBadSnapshot)
	}
	if snap.NextID == 0 {
		return fmt.Errorf("next_id must be positive: %w", ErrBadSnapshot)
	}
	if len(snap.Robots) > w.cfg.MaxPopulation {
		return fmt.Errorf("%d robots exceed capacity %d: %w", len(snap.Robots), w.cfg.MaxPopulation, ErrCapacity)
	}

	rng := rand.New(rand.NewSource(snap.Seed + int64(snap.Header.Tick)))

	robots := make(map[ElementID]*Robot, len(snap.Robots))
	statics := make(map[ElementID]*StaticElement, len(snap.Statics))
	index := NewSpatialIndex(w.cfg.CellSize)
	seen := make(map[ElementID]struct{}, len(snap.Robots)+len(snap.Statics))

	claim := func(raw uint64) (ElementID, error) {
		if raw == 0 {
			return 0, fmt.Errorf("id zero: %w", ErrBadSnapshot)
		}
		if raw >= snap.NextID {
			return 0, fmt.Errorf("id %d not below next_id %d: %w", raw, snap.NextID, ErrBadSnapshot)
		}
		id := ElementID(raw)
		if _, dup := seen[id]; dup {
			return 0, fmt.Errorf("duplicate id %d: %w", raw, ErrBadSnapshot)
		}
		seen[id] = struct{}{}
		return id, nil
	}

	for _, rv := range snap.Robots {
		id, err := claim(rv.ID)
		if err != nil {
			return fmt.Errorf("robot: %w", err)
		}
		color := colorFromArray(rv.Color)
		if !validColor(color) {
			return fmt.Errorf("robot %d: color out of range: %w", rv.ID, ErrBadSnapshot)
		}
		if rv.MaxEnergy <= 0 {
			return fmt.Errorf("robot %d: max_energy must be positive: %w", rv.ID, ErrBadSnapshot)
		}
		if rv.Energy < 0 || rv.Energy > rv.MaxEnergy {
			return fmt.Errorf("robot %d: energy %.3f outside [0, %.3f]: %w", rv.ID, rv.Energy, rv.MaxEnergy, ErrBadSnapshot)
		}
		if rv.MoveCost < 0 || rv.ReproThreshold < 0 {
			return fmt.Errorf("robot %d: negative cost or threshold: %w", rv.ID, ErrBadSnapshot)
		}
		state, ok := parseRobotState(rv.State)
		if !ok {
			return fmt.Errorf("robot %d: state %q: %w", rv.ID, rv.State, ErrBadSnapshot)
		}

		var b brain.Brain
		if rv.Brain != nil {
			b, err = brain.New(rv.Brain.Kind, rv.Brain.Params)
			if err != nil {
				return fmt.Errorf("robot %d brain: %v: %w", rv.ID, err, ErrBadSnapshot)
			}
		} else {
			b = brain.NewRuleBased(rng.Int63())
		}

		pos := vecFromArray(rv.Pos)
		if w.cfg.Bounds != nil {
			pos = w.cfg.Bounds.Clamp(pos)
		}
		robots[id] = &Robot{
			Element:        Element{ID: id, Pos: pos, Color: color},
			Vel:            vecFromArray(rv.Velocity),
			Energy:         rv.Energy,
			MaxEnergy:      rv.MaxEnergy,
			MoveCost:       rv.MoveCost,
			ReproThreshold: rv.ReproThreshold,
			State:          state,
			NextReproTick:  rv.NextReproTick,
			Brain:          b,
			Stats: RobotStats{
				DistanceTraveled:   rv.Stats.DistanceTraveled,
				ResourcesCollected: rv.Stats.ResourcesCollected,
				OffspringProduced:  rv.Stats.OffspringProduced,
				ConnectionsFormed:  rv.Stats.ConnectionsFormed,
				EnergyConsumed:     rv.Stats.EnergyConsumed,
				BornTick:           rv.Stats.BornTick,
			},
		}
		index.Insert(id, pos)
	}

	for _, sv := range snap.Statics {
		id, err := claim(sv.ID)
		if err != nil {
			return fmt.Errorf("static: %w", err)
		}
		color := colorFromArray(sv.Color)
		if !validColor(color) {
			return fmt.Errorf("static %d: color out of range: %w", sv.ID, ErrBadSnapshot)
		}
		rt := ResourceType(sv.ResourceType)
		if !validResourceType(rt) {
			return fmt.Errorf("static %d: resource type %q: %w", sv.ID, sv.ResourceType, ErrBadSnapshot)
		}
		if sv.ResourceValue < 0 || sv.InitialValue < 0 || sv.DecayRate < 0 {
			return fmt.Errorf("static %d: negative value or decay: %w", sv.ID, ErrBadSnapshot)
		}
		if sv.Hidden && sv.RespawnTime == nil {
			return fmt.Errorf("static %d: hidden without respawn_time: %w", sv.ID, ErrBadSnapshot)
		}

		pos := vecFromArray(sv.Pos)
		if w.cfg.Bounds != nil {
			pos = w.cfg.Bounds.Clamp(pos)
		}
		s := &StaticElement{
			Element:       Element{ID: id, Pos: pos, Color: color},
			ResourceValue: sv.ResourceValue,
			InitialValue:  sv.InitialValue,
			ResourceType:  rt,
			DecayRate:     sv.DecayRate,
			RespawnTime:   copyU64(sv.RespawnTime),
			MaxUses:       copyU64(sv.MaxUses),
			Uses:          sv.Uses,
			IsObstacle:    sv.IsObstacle,
			IsCollectible: sv.IsCollectible,
			exhausted:     sv.Exhausted,
			hidden:        sv.Hidden,
			respawnLeft:   sv.RespawnLeft,
		}
		statics[id] = s
		if !s.hidden {
			index.Insert(id, pos)
		}
	}

	conns := newConnectionGraph()
	for _, cv := range snap.Connections {
		if cv.A >= cv.B {
			return fmt.Errorf("connection %d-%d: endpoints must be ascending: %w", cv.A, cv.B, ErrBadSnapshot)
		}
		a, b := ElementID(cv.A), ElementID(cv.B)
		if _, ok := robots[a]; !ok {
			return fmt.Errorf("connection %d-%d: no robot %d: %w", cv.A, cv.B, cv.A, ErrBadSnapshot)
		}
		if _, ok := robots[b]; !ok {
			return fmt.Errorf("connection %d-%d: no robot %d: %w", cv.A, cv.B, cv.B, ErrBadSnapshot)
		}
		if cv.Strength < int(StrengthWeak) || cv.Strength > int(StrengthPermanent) {
			return fmt.Errorf("connection %d-%d: strength %d: %w", cv.A, cv.B, cv.Strength, ErrBadSnapshot)
		}
		if conns.get(a, b) != nil {
			return fmt.Errorf("connection %d-%d: duplicate edge: %w", cv.A, cv.B, ErrBadSnapshot)
		}
		c, _ := conns.ensure(a, b)
		c.Strength = Strength(cv.Strength)
		c.Duration = cv.Duration
		c.LastDistance = cv.LastDistance
		c.Separation = cv.Separation
	}

	// Staging is valid. Swap it in and republish the scene.
	old := w.sortedPublishedIDs()

	w.robots = robots
	w.statics = statics
	w.index = index
	w.conns = conns
	w.rng = rng
	w.cfg.Seed = snap.Seed
	if snap.Header.WorldID != "" {
		w.cfg.Name = snap.Header.WorldID
	}
	w.tick.Store(snap.Header.Tick)
	w.nextID.Store(snap.NextID - 1)

	w.stats = NewWorldStats(60, 3600)
	w.stats.SetTotals(StatsTotals{
		Steps:              snap.Stats.Steps,
		RobotsCreated:      snap.Stats.RobotsCreated,
		RobotsDestroyed:    snap.Stats.RobotsDestroyed,
		ResourcesCollected: snap.Stats.ResourcesCollected,
		ConnectionsMade:    snap.Stats.ConnectionsMade,
		OffspringProduced:  snap.Stats.OffspringProduced,
	})

	for _, id := range old {
		w.publishRemove(id)
	}
	for _, id := range w.sortedRobotIDs() {
		w.publishAdd(robotObject(w.robots[id]))
	}
	for _, id := range w.sortedStaticIDs() {
		if s := w.statics[id]; !s.hidden {
			w.publishAdd(staticObject(s))
		}
	}

	w.publishMetrics(snap.Header.Tick)
	return nil
}

// ConfigFromSnapshot rebuilds a world configuration from the parameters a
// snapshot carries, so a replay does not need the original config files.
// Missing parameters fall back to defaults in New.
func ConfigFromSnapshot(snap snapshot.SnapshotV1) WorldConfig {
	cfg := WorldConfig{
		Name: snap.Header.WorldID,
		Seed: snap.Seed,
	}
	p := snap.Params
	if p == nil {
		return cfg
	}
	cfg.StepRateHz = p.StepRateHz
	cfg.CellSize = p.CellSize
	cfg.SensorRadius = p.SensorRadius
	cfg.ProximityThreshold = p.ProximityThreshold
	cfg.CollectRange = p.CollectRange
	cfg.ConnectThreshold = p.ConnectThreshold
	cfg.BreakThreshold = p.BreakThreshold
	cfg.UptakeAmount = p.UptakeAmount
	cfg.StrengthenEvery = p.StrengthenEvery
	cfg.WeakenEvery = p.WeakenEvery
	cfg.CloneEnergyCost = p.CloneEnergyCost
	cfg.CrossoverEnergyCost = p.CrossoverEnergyCost
	cfg.OffspringEnergyFrac = p.OffspringEnergyFrac
	cfg.MutationRate = p.MutationRate
	cfg.BrainMutationRate = p.BrainMutationRate
	cfg.ReproCooldownSteps = p.ReproCooldownSteps
	cfg.SpawnJitter = p.SpawnJitter
	cfg.MaxPopulation = p.MaxPopulation
	if p.Bounds != nil {
		b := Bounds{Min: vecFromArray(p.Bounds.Min), Max: vecFromArray(p.Bounds.Max)}
		cfg.Bounds = &b
	}
	return cfg
}

func (w *World) sortedPublishedIDs() []ElementID {
	ids := make([]ElementID, 0, len(w.lastPublished))
	for id := range w.lastPublished {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}
