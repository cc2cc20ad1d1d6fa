package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	doc := `
protocol_version: "0.1"
step_rate_hz: 20
sensor_radius: 8.5
connections:
  connect_threshold: 1.5
  break_threshold: 5.0
  strengthen_every: 4
reproduction:
  clone_energy_cost: 12
  mutation_rate: 0.25
max_population: 64
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ProtocolVersion != "0.1" {
		t.Errorf("ProtocolVersion = %q", got.ProtocolVersion)
	}
	if got.StepRateHz != 20 {
		t.Errorf("StepRateHz = %d, want 20", got.StepRateHz)
	}
	if got.SensorRadius != 8.5 {
		t.Errorf("SensorRadius = %v, want 8.5", got.SensorRadius)
	}
	if got.Connections.ConnectThreshold != 1.5 || got.Connections.BreakThreshold != 5.0 {
		t.Errorf("connection thresholds = %+v", got.Connections)
	}
	if got.Connections.StrengthenEvery != 4 {
		t.Errorf("StrengthenEvery = %d, want 4", got.Connections.StrengthenEvery)
	}
	if got.Reproduction.CloneEnergyCost != 12 {
		t.Errorf("CloneEnergyCost = %v, want 12", got.Reproduction.CloneEnergyCost)
	}
	if got.Reproduction.MutationRate != 0.25 {
		t.Errorf("MutationRate = %v, want 0.25", got.Reproduction.MutationRate)
	}
	if got.MaxPopulation != 64 {
		t.Errorf("MaxPopulation = %d, want 64", got.MaxPopulation)
	}
	// Unset knobs stay zero so the world applies its own defaults.
	if got.CollectRange != 0 {
		t.Errorf("CollectRange = %v, want 0", got.CollectRange)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("step_rate_hz: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted malformed yaml")
	}
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.StepRateHz != 10 || d.MaxPopulation != 256 {
		t.Errorf("defaults = %+v", d)
	}
	if d.Connections.BreakThreshold <= d.Connections.ConnectThreshold {
		t.Error("break threshold must exceed connect threshold")
	}
	if d.Reproduction.OffspringEnergyFrac <= 0 || d.Reproduction.OffspringEnergyFrac > 1 {
		t.Errorf("OffspringEnergyFrac = %v", d.Reproduction.OffspringEnergyFrac)
	}
}
