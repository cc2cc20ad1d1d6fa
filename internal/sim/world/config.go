package world

// Bounds is an axis-aligned box that positions are clamped into. A nil
// Bounds on the config means an unbounded world.
type Bounds struct {
	Min, Max Vec3
}

func (b Bounds) Clamp(p Vec3) Vec3 {
	clamp := func(x, lo, hi float64) float64 {
		if x < lo {
			return lo
		}
		if x > hi {
			return hi
		}
		return x
	}
	return Vec3{
		X: clamp(p.X, b.Min.X, b.Max.X),
		Y: clamp(p.Y, b.Min.Y, b.Max.Y),
		Z: clamp(p.Z, b.Min.Z, b.Max.Z),
	}
}

func (b Bounds) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

func (b Bounds) valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

type WorldConfig struct {
	Name       string
	Seed       int64
	StepRateHz int

	Bounds *Bounds

	// Spatial index cell edge length.
	CellSize float64

	// Perception and interaction distances. "Within" always means
	// strictly closer than the threshold.
	SensorRadius       float64
	ProximityThreshold float64
	CollectRange       float64
	ConnectThreshold   float64
	BreakThreshold     float64

	// UptakeAmount caps how much value one collection can transfer.
	// Zero means no cap beyond the robot's free capacity.
	UptakeAmount float64

	// Connection cadence: strengthen after every StrengthenEvery steps of
	// accumulated contact, weaken after every WeakenEvery consecutive
	// steps apart beyond BreakThreshold.
	StrengthenEvery uint64
	WeakenEvery     uint64

	CloneEnergyCost     float64
	CrossoverEnergyCost float64
	OffspringEnergyFrac float64
	MutationRate        float64
	BrainMutationRate   float64
	ReproCooldownSteps  uint64
	SpawnJitter         float64

	MaxPopulation int

	// Operational cadences. These do not affect simulation state.
	SnapshotEveryTicks uint64
	StatsEveryTicks    uint64
}

func (c *WorldConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.StepRateHz <= 0 {
		c.StepRateHz = 10
	}
	if c.CellSize <= 0 {
		c.CellSize = 5.0
	}
	if c.SensorRadius <= 0 {
		c.SensorRadius = 10.0
	}
	if c.ProximityThreshold <= 0 {
		c.ProximityThreshold = 3.0
	}
	if c.CollectRange <= 0 {
		c.CollectRange = 1.0
	}
	if c.ConnectThreshold <= 0 {
		c.ConnectThreshold = 2.0
	}
	if c.BreakThreshold <= c.ConnectThreshold {
		c.BreakThreshold = c.ConnectThreshold * 2
	}
	if c.StrengthenEvery == 0 {
		c.StrengthenEvery = 10
	}
	if c.WeakenEvery == 0 {
		c.WeakenEvery = 1
	}
	if c.CloneEnergyCost <= 0 {
		c.CloneEnergyCost = 10.0
	}
	if c.CrossoverEnergyCost <= 0 {
		c.CrossoverEnergyCost = 15.0
	}
	if c.OffspringEnergyFrac <= 0 || c.OffspringEnergyFrac > 1 {
		c.OffspringEnergyFrac = 0.5
	}
	if c.MutationRate <= 0 {
		c.MutationRate = 0.1
	}
	if c.MutationRate > 0.9 {
		c.MutationRate = 0.9
	}
	if c.BrainMutationRate < 0 {
		c.BrainMutationRate = 0
	}
	if c.ReproCooldownSteps == 0 {
		c.ReproCooldownSteps = 10
	}
	if c.SpawnJitter <= 0 {
		c.SpawnJitter = 0.5
	}
	if c.MaxPopulation <= 0 {
		c.MaxPopulation = 256
	}
	if c.SnapshotEveryTicks == 0 {
		c.SnapshotEveryTicks = 600
	}
	if c.StatsEveryTicks == 0 {
		c.StatsEveryTicks = 100
	}
}
