package world

// StaticElement is a fixed world feature: a collectible resource node, an
// obstacle, or both.
type StaticElement struct {
	Element

	ResourceValue float64
	// InitialValue is what ResourceValue resets to on respawn.
	InitialValue float64
	ResourceType ResourceType

	// DecayRate is subtracted from ResourceValue every step.
	DecayRate float64

	// RespawnTime nil means an exhausted element is removed for good;
	// otherwise it hides for that many steps and then reinstates.
	RespawnTime *uint64
	// MaxUses nil means unlimited collections.
	MaxUses *uint64
	Uses    uint64

	IsObstacle    bool
	IsCollectible bool

	exhausted   bool
	hidden      bool
	respawnLeft uint64
}

// StaticSpec describes a static element to be added. IsCollectible nil
// defaults to collectible.
type StaticSpec struct {
	Pos           Vec3
	Color         *Color
	ResourceValue float64
	ResourceType  ResourceType
	DecayRate     float64
	RespawnTime   *uint64
	MaxUses       *uint64
	IsObstacle    bool
	IsCollectible *bool
}

func (s *StaticSpec) applyDefaults() {
	if s.ResourceValue <= 0 {
		s.ResourceValue = 20.0
	}
	if s.ResourceType == "" {
		s.ResourceType = ResourceEnergy
	}
	if s.Color == nil {
		s.Color = &Color{R: 0.9, G: 0.6, B: 0.1}
	}
	if s.IsCollectible == nil {
		t := true
		s.IsCollectible = &t
	}
}

// Active reports whether the element is currently present in the world
// (not hidden awaiting respawn).
func (s *StaticElement) Active() bool { return !s.hidden }

// Exhausted reports whether the element has been depleted.
func (s *StaticElement) Exhausted() bool { return s.exhausted }

func (s *StaticElement) collectible() bool {
	return s.IsCollectible && !s.exhausted && !s.hidden && s.ResourceValue > 0
}

func (s *StaticElement) exhaust() {
	if s.ResourceValue < 0 {
		s.ResourceValue = 0
	}
	s.exhausted = true
}
