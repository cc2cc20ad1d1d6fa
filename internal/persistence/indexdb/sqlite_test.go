package indexdb

import (
	"fmt"
	"path/filepath"
	"testing"

	"botworld.ai/internal/persistence/snapshot"
	"botworld.ai/internal/sim/world"
)

func TestIndexRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := Open(path, "run-a")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := idx.RecordRun("testbed", 42, "0.1"); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	for i := 0; i < 5; i++ {
		err := idx.WriteStep(world.StepRecord{
			Tick:        uint64(i),
			Digest:      fmt.Sprintf("d%02d", i),
			Robots:      2,
			Statics:     1,
			Connections: 0,
		})
		if err != nil {
			t.Fatalf("WriteStep: %v", err)
		}
	}

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, WorldID: "testbed", Tick: 4},
		Seed:   42,
		NextID: 4,
		Robots: []snapshot.RobotV1{{ID: 1}, {ID: 2}},
		Statics: []snapshot.StaticV1{
			{ID: 3},
		},
	}
	idx.RecordSnapshot("/data/snapshots/000004.json.zst", snap)

	// Close drains the queue and commits.
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx2, err := Open(path, "run-b")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx2.Close()

	runs, err := idx2.Runs()
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-a" || runs[0].World != "testbed" || runs[0].Seed != 42 {
		t.Fatalf("runs = %+v", runs)
	}

	n, err := idx2.StepCount("run-a")
	if err != nil {
		t.Fatalf("StepCount: %v", err)
	}
	if n != 5 {
		t.Fatalf("StepCount = %d, want 5", n)
	}

	row, ok, err := idx2.LatestSnapshot("run-a")
	if err != nil || !ok {
		t.Fatalf("LatestSnapshot: %v %v", ok, err)
	}
	if row.Tick != 4 || row.Robots != 2 || row.Statics != 1 {
		t.Fatalf("snapshot row = %+v", row)
	}
	if row.Path != "/data/snapshots/000004.json.zst" {
		t.Fatalf("snapshot path = %q", row.Path)
	}

	if _, ok, _ := idx2.LatestSnapshot("run-b"); ok {
		t.Fatal("run-b should have no snapshots")
	}
}

func TestWriteStepAfterCloseIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := Open(path, "run-a")
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}
	if err := idx.WriteStep(world.StepRecord{Tick: 1}); err != nil {
		t.Fatalf("WriteStep after close: %v", err)
	}
	// Close twice is safe.
	if err := idx.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestOpenValidation(t *testing.T) {
	if _, err := Open("", "run"); err == nil {
		t.Fatal("Open accepted empty path")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "x.db"), ""); err == nil {
		t.Fatal("Open accepted empty run id")
	}
}
