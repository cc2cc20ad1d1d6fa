package main

import (
	"path/filepath"

	"botworld.ai/internal/persistence/indexdb"
	"botworld.ai/internal/persistence/snapshot"
	"botworld.ai/internal/sim/world"
)

// runIndex is the optional read-model index fed alongside the step log.
// A nil runIndex disables indexing without touching the callers.
type runIndex interface {
	world.StepLogger
	Close() error
	RecordRun(worldName string, seed int64, protocolVersion string) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	Runs() ([]indexdb.RunRow, error)
}

func openRunIndex(worldDir, runID string, disableDB bool) (runIndex, error) {
	if disableDB {
		return nil, nil
	}
	dbPath := filepath.Join(worldDir, "index", "world.sqlite")
	idx, err := indexdb.Open(dbPath, runID)
	if err != nil {
		return nil, err
	}
	return idx, nil
}
