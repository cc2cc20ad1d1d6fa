// Package setup loads the YAML world file that seeds a fresh run: world
// identity, bounds, and the initial robot and static populations.
package setup

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"botworld.ai/internal/sim/brain"
	"botworld.ai/internal/sim/world"
)

type File struct {
	World   WorldDef    `yaml:"world"`
	Robots  []RobotDef  `yaml:"robots"`
	Statics []StaticDef `yaml:"static_elements"`
}

type WorldDef struct {
	Name   string     `yaml:"name"`
	Seed   int64      `yaml:"seed"`
	Bounds *BoundsDef `yaml:"bounds"`
}

type BoundsDef struct {
	Min [3]float64 `yaml:"min"`
	Max [3]float64 `yaml:"max"`
}

type RobotDef struct {
	Position       [3]float64  `yaml:"position"`
	Color          *[3]float64 `yaml:"color"`
	Energy         float64     `yaml:"energy"`
	MaxEnergy      float64     `yaml:"max_energy"`
	MoveCost       float64     `yaml:"movement_cost"`
	ReproThreshold float64     `yaml:"reproduction_threshold"`
	Brain          *BrainDef   `yaml:"brain"`
}

// BrainDef selects a registered policy kind. Params are passed through to
// the kind's factory as JSON.
type BrainDef struct {
	Kind   string         `yaml:"kind"`
	Params map[string]any `yaml:"params"`
}

type StaticDef struct {
	Position      [3]float64  `yaml:"position"`
	Color         *[3]float64 `yaml:"color"`
	ResourceValue float64     `yaml:"resource_value"`
	ResourceType  string      `yaml:"resource_type"`
	DecayRate     float64     `yaml:"decay_rate"`
	RespawnTime   *uint64     `yaml:"respawn_time"`
	MaxUses       *uint64     `yaml:"max_uses"`
	IsObstacle    bool        `yaml:"is_obstacle"`
	IsCollectible *bool       `yaml:"is_collectible"`
}

func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("world file: %w", err)
	}
	for i, r := range f.Robots {
		if r.Brain != nil && r.Brain.Kind == "" {
			return nil, fmt.Errorf("robot[%d]: brain kind missing", i)
		}
	}
	return &f, nil
}

// Config carries the file's identity fields into a world configuration.
// Tuning knobs come from elsewhere and are merged by the caller.
func (f *File) Config() world.WorldConfig {
	cfg := world.WorldConfig{
		Name: f.World.Name,
		Seed: f.World.Seed,
	}
	if f.World.Bounds != nil {
		b := world.Bounds{
			Min: vec(f.World.Bounds.Min),
			Max: vec(f.World.Bounds.Max),
		}
		cfg.Bounds = &b
	}
	return cfg
}

// Apply populates w with the file's initial entities. Brain kinds resolve
// through the policy registry; an unknown kind fails with the offending
// entry named.
func Apply(w *world.World, f *File) error {
	for i, def := range f.Robots {
		spec := world.RobotSpec{
			Pos:            vec(def.Position),
			Color:          color(def.Color),
			Energy:         def.Energy,
			MaxEnergy:      def.MaxEnergy,
			MoveCost:       def.MoveCost,
			ReproThreshold: def.ReproThreshold,
		}
		if def.Brain != nil {
			b, err := buildBrain(def.Brain)
			if err != nil {
				return fmt.Errorf("robot[%d]: %w", i, err)
			}
			spec.Brain = b
		}
		if _, err := w.AddRobot(spec); err != nil {
			return fmt.Errorf("robot[%d]: %w", i, err)
		}
	}
	for i, def := range f.Statics {
		spec := world.StaticSpec{
			Pos:           vec(def.Position),
			Color:         color(def.Color),
			ResourceValue: def.ResourceValue,
			ResourceType:  world.ResourceType(def.ResourceType),
			DecayRate:     def.DecayRate,
			RespawnTime:   def.RespawnTime,
			MaxUses:       def.MaxUses,
			IsObstacle:    def.IsObstacle,
			IsCollectible: def.IsCollectible,
		}
		if _, err := w.AddStatic(spec); err != nil {
			return fmt.Errorf("static_elements[%d]: %w", i, err)
		}
	}
	return nil
}

func buildBrain(def *BrainDef) (brain.Brain, error) {
	var params json.RawMessage
	if len(def.Params) > 0 {
		raw, err := json.Marshal(def.Params)
		if err != nil {
			return nil, fmt.Errorf("brain params: %w", err)
		}
		params = raw
	}
	return brain.New(def.Kind, params)
}

func vec(a [3]float64) world.Vec3 {
	return world.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

func color(a *[3]float64) *world.Color {
	if a == nil {
		return nil
	}
	return &world.Color{R: a[0], G: a[1], B: a[2]}
}
