package statscsv

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"botworld.ai/internal/sim/world"
)

func TestRowFromSample(t *testing.T) {
	s := world.StatsSample{
		Tick:           100,
		Robots:         3,
		Statics:        2,
		Connections:    1,
		Energies:       []float64{10, 20, 30},
		ResourceValues: []float64{5, 15},
		Totals: world.StatsTotals{
			ResourcesCollected: 12.5,
			OffspringProduced:  2,
			ConnectionsMade:    4,
			RobotsDestroyed:    1,
		},
	}

	row := RowFromSample(s)
	if row.Tick != 100 || row.Robots != 3 {
		t.Fatalf("row = %+v", row)
	}
	if row.EnergyTotal != 60 || row.EnergyMean != 20 {
		t.Errorf("energy total/mean = %v/%v", row.EnergyTotal, row.EnergyMean)
	}
	if math.Abs(row.EnergyStd-10) > 1e-9 {
		t.Errorf("EnergyStd = %v, want 10", row.EnergyStd)
	}
	if row.ResourceTotal != 20 {
		t.Errorf("ResourceTotal = %v, want 20", row.ResourceTotal)
	}
	if row.CollectedTotal != 12.5 || row.OffspringTotal != 2 || row.DeathsTotal != 1 {
		t.Errorf("totals = %+v", row)
	}
}

func TestRowFromEmptySample(t *testing.T) {
	row := RowFromSample(world.StatsSample{Tick: 1})
	if row.EnergyTotal != 0 || row.EnergyMean != 0 || row.EnergyStd != 0 {
		t.Fatalf("empty sample row = %+v", row)
	}
}

func TestRowSingleRobotHasZeroStd(t *testing.T) {
	row := RowFromSample(world.StatsSample{Energies: []float64{42}})
	if row.EnergyMean != 42 || row.EnergyStd != 0 {
		t.Fatalf("row = %+v", row)
	}
}

func TestWriterOutputShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	for i := 0; i < 3; i++ {
		err := w.WriteStats(world.StatsSample{
			Tick:     uint64(i * 100),
			Robots:   2,
			Energies: []float64{50, 70},
		})
		if err != nil {
			t.Fatalf("WriteStats: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3 rows:\n%s", len(lines), raw)
	}
	if !strings.HasPrefix(lines[0], "tick,") {
		t.Fatalf("header = %q", lines[0])
	}
	if strings.HasPrefix(lines[1], "tick") {
		t.Fatal("header repeated in data rows")
	}
	if !strings.HasPrefix(lines[2], "100,2,") {
		t.Fatalf("second row = %q", lines[2])
	}
}

func TestWriteAfterClose(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "stats.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteStats(world.StatsSample{}); err == nil {
		t.Fatal("WriteStats after Close should fail")
	}
}
