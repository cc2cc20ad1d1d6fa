package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleSnapshot() SnapshotV1 {
	respawn := uint64(30)
	maxUses := uint64(5)
	return SnapshotV1{
		Header: Header{Version: Version, WorldID: "w1", Tick: 42},
		Seed:   1337,
		NextID: 4,
		Params: &ParamsV1{
			SensorRadius:        10,
			ProximityThreshold:  3,
			CollectRange:        1,
			ConnectThreshold:    2,
			BreakThreshold:      4,
			StrengthenEvery:     10,
			WeakenEvery:         1,
			CloneEnergyCost:     10,
			CrossoverEnergyCost: 15,
			OffspringEnergyFrac: 0.5,
			MutationRate:        0.1,
			ReproCooldownSteps:  10,
			SpawnJitter:         0.5,
			MaxPopulation:       256,
		},
		Robots: []RobotV1{
			{
				ID:             1,
				Pos:            [3]float64{1, 0, -2},
				Color:          [3]float64{0.2, 0.8, 0.2},
				Velocity:       [3]float64{1, 0, 0},
				Energy:         24,
				MaxEnergy:      100,
				MoveCost:       1,
				ReproThreshold: 20,
				State:          "MOVING",
				Stats:          RobotStatsV1{DistanceTraveled: 1, EnergyConsumed: 1},
				Brain:          &BrainV1{Kind: "rule_based", Params: json.RawMessage(`{"seed":7}`)},
			},
			{
				ID:             3,
				Pos:            [3]float64{2, 0, -2},
				Color:          [3]float64{0.2, 0.8, 0.2},
				Energy:         80,
				MaxEnergy:      100,
				MoveCost:       1,
				ReproThreshold: 20,
				State:          "IDLE",
			},
		},
		Statics: []StaticV1{
			{
				ID:            2,
				Pos:           [3]float64{0, 0, 0},
				Color:         [3]float64{0.9, 0.6, 0.1},
				ResourceValue: 12.5,
				InitialValue:  20,
				ResourceType:  "ENERGY",
				DecayRate:     0.1,
				RespawnTime:   &respawn,
				MaxUses:       &maxUses,
				Uses:          2,
				IsCollectible: true,
			},
		},
		Connections: []ConnectionV1{
			{A: 1, B: 3, Strength: 1, Duration: 4, LastDistance: 1.0},
		},
		Stats: WorldStatsV1{
			Steps:              42,
			RobotsCreated:      2,
			ResourcesCollected: 7.5,
			ConnectionsMade:    2,
		},
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	want := sampleSnapshot()
	if err := Write(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Header != want.Header {
		t.Fatalf("header: got %+v want %+v", got.Header, want.Header)
	}
	if got.Seed != want.Seed || got.NextID != want.NextID {
		t.Fatalf("seed/next_id: got %d/%d", got.Seed, got.NextID)
	}
	if len(got.Robots) != 2 || len(got.Statics) != 1 || len(got.Connections) != 1 {
		t.Fatalf("entity counts: %d robots %d statics %d connections",
			len(got.Robots), len(got.Statics), len(got.Connections))
	}
	r := got.Robots[0]
	if r.ID != 1 || r.Energy != 24 || r.State != "MOVING" || r.Pos != want.Robots[0].Pos {
		t.Fatalf("robot 1: %+v", r)
	}
	if r.Brain == nil || r.Brain.Kind != "rule_based" {
		t.Fatalf("robot 1 brain: %+v", r.Brain)
	}
	var bp map[string]any
	if err := json.Unmarshal(r.Brain.Params, &bp); err != nil || bp["seed"] != float64(7) {
		t.Fatalf("brain params: %v %v", bp, err)
	}
	s := got.Statics[0]
	if s.ResourceValue != 12.5 || s.ResourceType != "ENERGY" || !s.IsCollectible {
		t.Fatalf("static: %+v", s)
	}
	if s.RespawnTime == nil || *s.RespawnTime != 30 || s.MaxUses == nil || *s.MaxUses != 5 {
		t.Fatalf("static limits: %+v", s)
	}
	c := got.Connections[0]
	if c.A != 1 || c.B != 3 || c.Strength != 1 || c.Duration != 4 {
		t.Fatalf("connection: %+v", c)
	}
	if got.Stats != want.Stats {
		t.Fatalf("stats: got %+v want %+v", got.Stats, want.Stats)
	}
	if got.Params == nil || got.Params.SensorRadius != 10 || got.Params.MaxPopulation != 256 {
		t.Fatalf("params: %+v", got.Params)
	}
}

func TestSnapshot_RoundTripCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json.zst")
	if err := Write(path, sampleSnapshot()); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("readfile: %v", err)
	}
	if len(raw) < 4 || raw[0] != 0x28 || raw[1] != 0xB5 || raw[2] != 0x2F || raw[3] != 0xFD {
		t.Fatalf("missing zstd frame magic: % x", raw[:4])
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Header.Tick != 42 || len(got.Robots) != 2 {
		t.Fatalf("decoded: %+v", got.Header)
	}
}

func TestSnapshot_RejectsOutOfRangeColor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	snap := sampleSnapshot()
	snap.Robots[0].Color = [3]float64{2, 0, 0}
	if err := Write(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(path); err == nil || !strings.Contains(err.Error(), "schema") {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestSnapshot_RejectsWrongVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	snap := sampleSnapshot()
	snap.Header.Version = 2
	if err := Write(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(path); err == nil {
		t.Fatal("expected version rejection")
	}
}

func TestSnapshot_RejectsZeroStrengthEdge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	snap := sampleSnapshot()
	snap.Connections[0].Strength = 0
	if err := Write(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(path); err == nil {
		t.Fatal("expected schema rejection for strength 0")
	}
}
