// Package indexdb maintains a SQLite index of runs, snapshots and per-step
// stats so operators can query history without scanning the JSONL logs.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"botworld.ai/internal/persistence/snapshot"
	"botworld.ai/internal/sim/world"
)

// SQLiteIndex is a write-behind index bound to one run. Record methods are
// non-blocking: rows are queued to a single writer goroutine and dropped if
// the queue backs up; the JSONL step log remains the source of truth.
type SQLiteIndex struct {
	db    *sql.DB
	runID string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqStep reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	step     world.StepRecord
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick        uint64
	Path        string
	Seed        int64
	Robots      int
	Statics     int
	Connections int
}

// RunRow describes one recorded run.
type RunRow struct {
	ID        string
	World     string
	Seed      int64
	Protocol  string
	StartedAt string
}

// SnapshotRow is a queryable snapshot index entry.
type SnapshotRow struct {
	RunID       string
	Tick        uint64
	Path        string
	Seed        int64
	Robots      int
	Statics     int
	Connections int
}

func Open(path, runID string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if runID == "" {
		return nil, fmt.Errorf("empty run id")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:    db,
		runID: runID,
		ch:    make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL durability is
	// enough for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			world TEXT NOT NULL,
			seed INTEGER NOT NULL,
			protocol TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS step_stats (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			digest TEXT NOT NULL,
			robots INTEGER NOT NULL,
			statics INTEGER NOT NULL,
			connections INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			robots INTEGER NOT NULL,
			statics INTEGER NOT NULL,
			connections INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_tick ON snapshots(tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordRun registers the run synchronously before stepping starts.
func (s *SQLiteIndex) RecordRun(worldName string, seed int64, protocolVersion string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO runs(run_id,world,seed,protocol,started_at) VALUES(?,?,?,?,?)`,
		s.runID, worldName, seed, protocolVersion,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`)
	return err
}

// WriteStep satisfies world.StepLogger.
func (s *SQLiteIndex) WriteStep(rec world.StepRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqStep, step: rec}:
	default:
		// Drop if the indexer falls behind.
	}
	return nil
}

// RecordSnapshot indexes a snapshot already written to path.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:        snap.Header.Tick,
		Path:        path,
		Seed:        snap.Seed,
		Robots:      len(snap.Robots),
		Statics:     len(snap.Statics),
		Connections: len(snap.Connections),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
	}
}

// Runs lists recorded runs, newest first.
func (s *SQLiteIndex) Runs() ([]RunRow, error) {
	rows, err := s.db.Query(`SELECT run_id,world,seed,protocol,started_at FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.World, &r.Seed, &r.Protocol, &r.StartedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the highest-tick snapshot indexed for runID.
func (s *SQLiteIndex) LatestSnapshot(runID string) (SnapshotRow, bool, error) {
	var r SnapshotRow
	err := s.db.QueryRow(
		`SELECT run_id,tick,path,seed,robots,statics,connections FROM snapshots
		 WHERE run_id=? ORDER BY tick DESC LIMIT 1`, runID,
	).Scan(&r.RunID, &r.Tick, &r.Path, &r.Seed, &r.Robots, &r.Statics, &r.Connections)
	if err == sql.ErrNoRows {
		return r, false, nil
	}
	if err != nil {
		return r, false, err
	}
	return r, true, nil
}

// StepCount reports how many step rows runID has.
func (s *SQLiteIndex) StepCount(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM step_stats WHERE run_id=?`, runID).Scan(&n)
	return n, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertStep, _ := s.db.Prepare(`INSERT OR REPLACE INTO step_stats(run_id,tick,digest,robots,statics,connections) VALUES(?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(run_id,tick,path,seed,robots,statics,connections) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		if insertStep != nil {
			_ = insertStep.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 1000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqStep:
			if insertStep != nil {
				if _, err := tx.Stmt(insertStep).Exec(
					s.runID,
					int64(r.step.Tick),
					r.step.Digest,
					r.step.Robots,
					r.step.Statics,
					r.step.Connections,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					s.runID,
					int64(sn.Tick),
					sn.Path,
					sn.Seed,
					sn.Robots,
					sn.Statics,
					sn.Connections,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
