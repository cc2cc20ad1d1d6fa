// Package archive manages long-term snapshot storage. Milestone copies
// live outside the snapshots directory and survive pruning; Prune caps how
// many regular snapshots stay on disk.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"botworld.ai/internal/persistence/snapshot"
)

type MilestoneMeta struct {
	Milestone int    `json:"milestone"`
	Tick      uint64 `json:"tick"`
	World     string `json:"world"`
	Seed      int64  `json:"seed"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

// Milestone copies a snapshot into `worldDir/archives/milestone_<NNN>/`
// when its tick falls on an everyTicks boundary. It returns
// (milestone, archivedPath, archived=true) when a copy was made. To get a
// copy per boundary, everyTicks must be a multiple of the snapshot cadence.
func Milestone(worldDir, snapshotPath string, snap snapshot.SnapshotV1, everyTicks uint64) (milestone int, archivedPath string, archived bool, err error) {
	if everyTicks == 0 {
		return 0, "", false, nil
	}
	if snap.Header.Tick == 0 || snap.Header.Tick%everyTicks != 0 {
		return 0, "", false, nil
	}
	milestone = int(snap.Header.Tick / everyTicks)

	archiveDir := filepath.Join(worldDir, "archives", fmt.Sprintf("milestone_%03d", milestone))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return 0, "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return 0, "", false, err
	}

	meta := MilestoneMeta{
		Milestone: milestone,
		Tick:      snap.Header.Tick,
		World:     snap.Header.WorldID,
		Seed:      snap.Seed,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return milestone, dst, true, nil
}

// Prune removes the oldest `<tick>.snap.zst` files in dir until at most
// keep remain. Files whose names do not parse as a tick are left alone.
func Prune(dir string, keep int) (removed int, err error) {
	if keep <= 0 {
		return 0, nil
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	type snapFile struct {
		tick uint64
		name string
	}
	files := make([]snapFile, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		files = append(files, snapFile{tick: tick, name: name})
	}
	if len(files) <= keep {
		return 0, nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].tick < files[j].tick })
	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(filepath.Join(dir, f.name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
