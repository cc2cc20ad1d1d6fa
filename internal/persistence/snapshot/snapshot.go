// Package snapshot defines the versioned world snapshot document and its
// on-disk codec. Snapshots are JSON, optionally zstd-compressed when the
// target path ends in ".zst", and every document read back is checked
// against the embedded JSON schema before it is decoded.
package snapshot

import (
	"bufio"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Version is the current snapshot document version.
const Version = 1

//go:embed snapshot.schema.json
var schemaSrc string

var schema = jsonschema.MustCompileString("snapshot.schema.json", schemaSrc)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed int64 `json:"seed"`

	// NextID is the id the next entity allocation will receive. It is
	// strictly greater than every id stored in the document.
	NextID uint64 `json:"next_id"`

	// Operational parameters captured for deterministic replay/resume.
	Params *ParamsV1 `json:"params,omitempty"`

	Robots      []RobotV1      `json:"robots"`
	Statics     []StaticV1     `json:"static_elements"`
	Connections []ConnectionV1 `json:"connections"`

	Stats WorldStatsV1 `json:"stats"`
}

type ParamsV1 struct {
	SensorRadius        float64   `json:"sensor_radius"`
	ProximityThreshold  float64   `json:"proximity_threshold"`
	CollectRange        float64   `json:"collect_range"`
	ConnectThreshold    float64   `json:"connect_threshold"`
	BreakThreshold      float64   `json:"break_threshold"`
	StrengthenEvery     uint64    `json:"strengthen_every"`
	WeakenEvery         uint64    `json:"weaken_every"`
	CloneEnergyCost     float64   `json:"clone_energy_cost"`
	CrossoverEnergyCost float64   `json:"crossover_energy_cost"`
	OffspringEnergyFrac float64   `json:"offspring_energy_frac"`
	MutationRate        float64   `json:"mutation_rate"`
	BrainMutationRate   float64   `json:"brain_mutation_rate,omitempty"`
	ReproCooldownSteps  uint64    `json:"repro_cooldown_steps"`
	SpawnJitter         float64   `json:"spawn_jitter"`
	MaxPopulation       int       `json:"max_population"`
	CellSize            float64   `json:"cell_size,omitempty"`
	UptakeAmount        float64   `json:"uptake_amount,omitempty"`
	StepRateHz          int       `json:"step_rate_hz,omitempty"`
	Bounds              *BoundsV1 `json:"bounds,omitempty"`
}

type BoundsV1 struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

type RobotV1 struct {
	ID             uint64       `json:"id"`
	Pos            [3]float64   `json:"position"`
	Color          [3]float64   `json:"color"`
	Velocity       [3]float64   `json:"velocity"`
	Energy         float64      `json:"energy"`
	MaxEnergy      float64      `json:"max_energy"`
	MoveCost       float64      `json:"movement_cost"`
	ReproThreshold float64      `json:"reproduction_threshold"`
	State          string       `json:"state"`
	NextReproTick  uint64       `json:"next_repro_tick,omitempty"`
	Stats          RobotStatsV1 `json:"stats"`
	Brain          *BrainV1     `json:"brain,omitempty"`
}

type RobotStatsV1 struct {
	DistanceTraveled   float64 `json:"distance_traveled"`
	ResourcesCollected uint64  `json:"resources_collected"`
	OffspringProduced  uint64  `json:"offspring_produced"`
	ConnectionsFormed  uint64  `json:"connections_formed"`
	EnergyConsumed     float64 `json:"energy_consumed"`
	BornTick           uint64  `json:"born_tick,omitempty"`
}

type BrainV1 struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params,omitempty"`
}

type StaticV1 struct {
	ID            uint64     `json:"id"`
	Pos           [3]float64 `json:"position"`
	Color         [3]float64 `json:"color"`
	ResourceValue float64    `json:"resource_value"`
	InitialValue  float64    `json:"initial_value"`
	ResourceType  string     `json:"resource_type"`
	DecayRate     float64    `json:"decay_rate"`
	RespawnTime   *uint64    `json:"respawn_time,omitempty"`
	MaxUses       *uint64    `json:"max_uses,omitempty"`
	Uses          uint64     `json:"uses,omitempty"`
	IsObstacle    bool       `json:"is_obstacle"`
	IsCollectible bool       `json:"is_collectible"`
	Exhausted     bool       `json:"exhausted,omitempty"`
	Hidden        bool       `json:"hidden,omitempty"`
	RespawnLeft   uint64     `json:"respawn_left,omitempty"`
}

// ConnectionV1 stores one canonical edge (A < B). Edges at strength zero
// are never written.
type ConnectionV1 struct {
	A            uint64  `json:"a"`
	B            uint64  `json:"b"`
	Strength     int     `json:"strength"`
	Duration     uint64  `json:"duration"`
	LastDistance float64 `json:"last_distance"`
	Separation   uint64  `json:"separation,omitempty"`
}

type WorldStatsV1 struct {
	Steps              uint64  `json:"steps"`
	RobotsCreated      uint64  `json:"robots_created"`
	RobotsDestroyed    uint64  `json:"robots_destroyed"`
	ResourcesCollected float64 `json:"resources_collected"`
	ConnectionsMade    uint64  `json:"connections_made"`
	OffspringProduced  uint64  `json:"offspring_produced"`
}

func Write(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var w io.Writer = f
	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		defer enc.Close()
		w = enc
	}

	bw := bufio.NewWriterSize(w, 256*1024)
	defer bw.Flush()

	je := json.NewEncoder(bw)
	je.SetIndent("", "  ")
	if err := je.Encode(&snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func Read(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return snap, err
		}
		defer dec.Close()
		r = dec
	}

	raw, err := io.ReadAll(bufio.NewReaderSize(r, 256*1024))
	if err != nil {
		return snap, err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return snap, fmt.Errorf("snapshot schema: %w", err)
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}
