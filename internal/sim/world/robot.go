package world

import "botworld.ai/internal/sim/brain"

// Element carries the identity shared by every world entity.
type Element struct {
	ID    ElementID
	Pos   Vec3
	Color Color
}

type Robot struct {
	Element

	// Vel is the displacement applied in the most recent step.
	Vel Vec3

	Energy         float64
	MaxEnergy      float64
	MoveCost       float64
	ReproThreshold float64

	State RobotState

	// NextReproTick is the earliest tick this robot may reproduce again.
	NextReproTick uint64

	Brain brain.Brain

	Stats RobotStats
}

type RobotStats struct {
	DistanceTraveled   float64
	ResourcesCollected uint64
	OffspringProduced  uint64
	ConnectionsFormed  uint64
	EnergyConsumed     float64
	BornTick           uint64
}

// RobotSpec describes a robot to be added. Zero-valued numeric fields pick
// the defaults; Energy zero means "start full".
type RobotSpec struct {
	Pos            Vec3
	Color          *Color
	Energy         float64
	MaxEnergy      float64
	MoveCost       float64
	ReproThreshold float64
	Brain          brain.Brain
}

func (s *RobotSpec) applyDefaults() {
	if s.MaxEnergy <= 0 {
		s.MaxEnergy = 100.0
	}
	if s.Energy <= 0 {
		s.Energy = s.MaxEnergy
	}
	if s.MoveCost <= 0 {
		s.MoveCost = 1.0
	}
	if s.ReproThreshold <= 0 {
		s.ReproThreshold = 20.0
	}
	if s.Color == nil {
		s.Color = &Color{R: 0.2, G: 0.8, B: 0.2}
	}
}

func (r *Robot) Alive() bool { return r.State != StateDead }

// drain spends energy and kills the robot when its reserve is gone.
func (r *Robot) drain(cost float64) {
	r.Energy -= cost
	r.Stats.EnergyConsumed += cost
	if r.Energy <= 0 {
		r.Energy = 0
		r.State = StateDead
	}
}

func (r *Robot) readyToReproduce(now uint64) bool {
	return r.Alive() && r.Energy >= r.ReproThreshold && now >= r.NextReproTick
}
