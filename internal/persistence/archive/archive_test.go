package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"botworld.ai/internal/persistence/snapshot"
)

func TestMilestone_CopiesBoundarySnapshot(t *testing.T) {
	dir := t.TempDir()
	worldDir := filepath.Join(dir, "worlds", "w1")
	src := filepath.Join(worldDir, "snapshots", "1200.snap.zst")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir snapshots: %v", err)
	}
	want := []byte("dummy")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, WorldID: "w1", Tick: 1200},
		Seed:   42,
	}

	milestone, archivedPath, ok, err := Milestone(worldDir, src, snap, 600)
	if err != nil {
		t.Fatalf("milestone: %v", err)
	}
	if !ok {
		t.Fatalf("expected archived=true")
	}
	if milestone != 2 {
		t.Fatalf("milestone=%d want 2", milestone)
	}

	got, err := os.ReadFile(archivedPath)
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("archived content mismatch: got=%q want=%q", string(got), string(want))
	}

	raw, err := os.ReadFile(filepath.Join(filepath.Dir(archivedPath), "meta.json"))
	if err != nil {
		t.Fatalf("read meta.json: %v", err)
	}
	var meta MilestoneMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("decode meta.json: %v", err)
	}
	if meta.Milestone != 2 || meta.Tick != 1200 || meta.World != "w1" || meta.Seed != 42 {
		t.Fatalf("meta mismatch: %+v", meta)
	}
}

func TestMilestone_SkipsOffBoundaryTicks(t *testing.T) {
	dir := t.TempDir()
	snap := snapshot.SnapshotV1{Header: snapshot.Header{Version: 1, WorldID: "w1", Tick: 500}}

	if _, _, ok, err := Milestone(dir, "unused", snap, 600); err != nil || ok {
		t.Fatalf("tick 500 every 600: ok=%v err=%v, want no archive", ok, err)
	}
	snap.Header.Tick = 600
	if _, _, ok, err := Milestone(dir, "unused", snap, 0); err != nil || ok {
		t.Fatalf("everyTicks 0: ok=%v err=%v, want no archive", ok, err)
	}
	snap.Header.Tick = 0
	if _, _, ok, err := Milestone(dir, "unused", snap, 600); err != nil || ok {
		t.Fatalf("tick 0: ok=%v err=%v, want no archive", ok, err)
	}
}

func TestPrune_KeepsNewestSnapshots(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"100.snap.zst", "200.snap.zst", "300.snap.zst", "400.snap.zst", "500.snap.zst", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	removed, err := Prune(dir, 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed=%d want 3", removed)
	}

	for _, name := range []string{"400.snap.zst", "500.snap.zst", "notes.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to survive: %v", name, err)
		}
	}
	for _, name := range []string{"100.snap.zst", "200.snap.zst", "300.snap.zst"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be pruned", name)
		}
	}

	removed, err = Prune(dir, 2)
	if err != nil {
		t.Fatalf("second prune: %v", err)
	}
	if removed != 0 {
		t.Fatalf("second prune removed=%d want 0", removed)
	}
}

func TestPrune_MissingDirIsFine(t *testing.T) {
	removed, err := Prune(filepath.Join(t.TempDir(), "nope"), 3)
	if err != nil {
		t.Fatalf("prune missing dir: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed=%d want 0", removed)
	}
}

func TestPrune_ZeroKeepDisables(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "100.snap.zst"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	removed, err := Prune(dir, 0)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed=%d want 0", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "100.snap.zst")); err != nil {
		t.Fatalf("snapshot should be untouched: %v", err)
	}
}
