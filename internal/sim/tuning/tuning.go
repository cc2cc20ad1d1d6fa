// Package tuning loads the operator-facing simulation knobs from YAML.
// Values left at zero fall back to the world's built-in defaults.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	StepRateHz         int     `yaml:"step_rate_hz"`
	SensorRadius       float64 `yaml:"sensor_radius"`
	ProximityThreshold float64 `yaml:"proximity_threshold"`
	CollectRange       float64 `yaml:"collect_range"`
	UptakeAmount       float64 `yaml:"uptake_amount"`
	CellSize           float64 `yaml:"cell_size"`

	Connections  Connections  `yaml:"connections"`
	Reproduction Reproduction `yaml:"reproduction"`

	MaxPopulation      int `yaml:"max_population"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	StatsEveryTicks    int `yaml:"stats_every_ticks"`
}

type Connections struct {
	ConnectThreshold float64 `yaml:"connect_threshold"`
	BreakThreshold   float64 `yaml:"break_threshold"`
	StrengthenEvery  int     `yaml:"strengthen_every"`
	WeakenEvery      int     `yaml:"weaken_every"`
}

type Reproduction struct {
	CloneEnergyCost     float64 `yaml:"clone_energy_cost"`
	CrossoverEnergyCost float64 `yaml:"crossover_energy_cost"`
	OffspringEnergyFrac float64 `yaml:"offspring_energy_frac"`
	MutationRate        float64 `yaml:"mutation_rate"`
	BrainMutationRate   float64 `yaml:"brain_mutation_rate"`
	CooldownSteps       int     `yaml:"cooldown_steps"`
	SpawnJitter         float64 `yaml:"spawn_jitter"`
}

// Defaults returns the stock tuning shipped in configs/tuning.yaml.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "0.1",
		StepRateHz:         10,
		SensorRadius:       10.0,
		ProximityThreshold: 3.0,
		CollectRange:       1.0,
		CellSize:           5.0,
		Connections: Connections{
			ConnectThreshold: 2.0,
			BreakThreshold:   4.0,
			StrengthenEvery:  10,
			WeakenEvery:      1,
		},
		Reproduction: Reproduction{
			CloneEnergyCost:     10.0,
			CrossoverEnergyCost: 15.0,
			OffspringEnergyFrac: 0.5,
			MutationRate:        0.1,
			CooldownSteps:       10,
			SpawnJitter:         0.5,
		},
		MaxPopulation:      256,
		SnapshotEveryTicks: 600,
		StatsEveryTicks:    100,
	}
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
