// Package statscsv exports periodic world statistics as CSV rows for
// offline analysis.
package statscsv

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"botworld.ai/internal/sim/world"
)

// Row is one sampled line of stats.csv.
type Row struct {
	Tick        uint64 `csv:"tick"`
	Robots      int    `csv:"robots"`
	Statics     int    `csv:"statics"`
	Connections int    `csv:"connections"`

	EnergyTotal float64 `csv:"energy_total"`
	EnergyMean  float64 `csv:"energy_mean"`
	EnergyStd   float64 `csv:"energy_std"`

	ResourceTotal float64 `csv:"resource_total"`

	CollectedTotal  float64 `csv:"collected_total"`
	OffspringTotal  uint64  `csv:"offspring_total"`
	ConnectionsMade uint64  `csv:"connections_made_total"`
	DeathsTotal     uint64  `csv:"deaths_total"`
}

// Writer appends one Row per stats sample. It satisfies world.StatsLogger.
type Writer struct {
	mu            sync.Mutex
	f             *os.File
	headerWritten bool
}

func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	return &Writer{f: f}, nil
}

func (w *Writer) WriteStats(s world.StatsSample) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return os.ErrClosed
	}

	row := RowFromSample(s)
	records := []Row{row}
	if !w.headerWritten {
		if err := gocsv.Marshal(records, w.f); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		w.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, w.f); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

// RowFromSample aggregates one sample into a CSV row.
func RowFromSample(s world.StatsSample) Row {
	row := Row{
		Tick:            s.Tick,
		Robots:          s.Robots,
		Statics:         s.Statics,
		Connections:     s.Connections,
		CollectedTotal:  s.Totals.ResourcesCollected,
		OffspringTotal:  s.Totals.OffspringProduced,
		ConnectionsMade: s.Totals.ConnectionsMade,
		DeathsTotal:     s.Totals.RobotsDestroyed,
	}
	if len(s.Energies) > 0 {
		row.EnergyTotal = floats.Sum(s.Energies)
		row.EnergyMean = stat.Mean(s.Energies, nil)
	}
	if len(s.Energies) > 1 {
		row.EnergyStd = stat.StdDev(s.Energies, nil)
	}
	if len(s.ResourceValues) > 0 {
		row.ResourceTotal = floats.Sum(s.ResourceValues)
	}
	return row
}
