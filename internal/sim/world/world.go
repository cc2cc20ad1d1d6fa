// Package world implements a deterministic autonomous-agent simulation:
// robots with pluggable brains move over a 3-D field, collect resources,
// form graded connections, and reproduce. One Step applies every system in
// a fixed order so identical seeds and inputs replay identical histories.
package world

import (
	"context"
	"log"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"botworld.ai/internal/persistence/snapshot"
	"botworld.ai/internal/sim/brain"
)

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg WorldConfig
	log *log.Logger

	tick   atomic.Uint64
	nextID atomic.Uint64

	rng *rand.Rand

	robots  map[ElementID]*Robot
	statics map[ElementID]*StaticElement

	index *SpatialIndex
	conns *connectionGraph

	engine        Engine
	lastPublished map[ElementID]ObjectState

	stepLogger  StepLogger
	statsLogger StatsLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	stats *WorldStats

	metrics atomic.Value

	stop chan struct{}

	scratch []ElementID
}

// StepLogger receives one record per completed step.
// Implemented in internal/persistence/steplog.
type StepLogger interface {
	WriteStep(rec StepRecord) error
}

type StepRecord struct {
	Tick        uint64 `json:"tick"`
	Digest      string `json:"digest"`
	Robots      int    `json:"robots"`
	Statics     int    `json:"statics"`
	Connections int    `json:"connections"`
}

// StatsLogger receives periodic aggregate samples.
// Implemented in internal/persistence/statscsv.
type StatsLogger interface {
	WriteStats(s StatsSample) error
}

type StatsSample struct {
	Tick        uint64
	Robots      int
	Statics     int
	Connections int

	// Energies holds every live robot's energy, ResourceValues every
	// visible collectible's remaining value, both in ascending id order.
	Energies       []float64
	ResourceValues []float64

	Totals StatsTotals
}

func New(cfg WorldConfig) (*World, error) {
	cfg.applyDefaults()
	if cfg.Bounds != nil && !cfg.Bounds.valid() {
		return nil, errInvalidBounds(*cfg.Bounds)
	}
	w := &World{
		cfg:           cfg,
		log:           log.Default(),
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		robots:        map[ElementID]*Robot{},
		statics:       map[ElementID]*StaticElement{},
		index:         NewSpatialIndex(cfg.CellSize),
		conns:         newConnectionGraph(),
		engine:        nullEngine{},
		lastPublished: map[ElementID]ObjectState{},
		stats:         NewWorldStats(60, 3600),
		stop:          make(chan struct{}),
	}
	w.publishMetrics(0)
	return w, nil
}

func (w *World) SetLogger(l *log.Logger) {
	if l != nil {
		w.log = l
	}
}

func (w *World) SetEngine(e Engine) {
	if e == nil {
		e = nullEngine{}
	}
	w.engine = e
}

func (w *World) SetStepLogger(l StepLogger)                    { w.stepLogger = l }
func (w *World) SetStatsLogger(l StatsLogger)                  { w.statsLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Config() WorldConfig { return w.cfg }

// Stats returns the lifetime counters. Loop goroutine only; concurrent
// readers should use Metrics.
func (w *World) Stats() StatsTotals { return w.stats.Totals() }

func (w *World) Robot(id ElementID) (*Robot, bool) {
	r, ok := w.robots[id]
	return r, ok
}

func (w *World) Static(id ElementID) (*StaticElement, bool) {
	s, ok := w.statics[id]
	return s, ok
}

// Connection returns a copy of the edge between a and b, if present.
func (w *World) Connection(a, b ElementID) (Connection, bool) {
	c := w.conns.get(a, b)
	if c == nil {
		return Connection{}, false
	}
	return *c, true
}

// ConnectionsOf returns the ids of robots connected to id, ascending.
func (w *World) ConnectionsOf(id ElementID) []ElementID { return w.conns.peers(id) }

func (w *World) RobotCount() int      { return len(w.robots) }
func (w *World) StaticCount() int     { return len(w.statics) }
func (w *World) ConnectionCount() int { return w.conns.count() }

// RobotIDs returns all robot ids ascending.
func (w *World) RobotIDs() []ElementID { return w.sortedRobotIDs() }

// StaticIDs returns all static ids ascending, hidden elements included.
func (w *World) StaticIDs() []ElementID { return w.sortedStaticIDs() }

func (w *World) sortedRobotIDs() []ElementID {
	ids := make([]ElementID, 0, len(w.robots))
	for id := range w.robots {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *World) sortedStaticIDs() []ElementID {
	ids := make([]ElementID, 0, len(w.statics))
	for id := range w.statics {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AddRobot validates the spec, allocates an id and inserts the robot.
// Construction is all-or-nothing: on error the world is unchanged.
func (w *World) AddRobot(spec RobotSpec) (*Robot, error) {
	if len(w.robots) >= w.cfg.MaxPopulation {
		return nil, ErrCapacity
	}
	if spec.Color != nil && !validColor(*spec.Color) {
		return nil, ErrBadColor
	}
	if spec.Energy < 0 {
		return nil, ErrBadEnergy
	}
	spec.applyDefaults()
	if spec.Energy > spec.MaxEnergy {
		return nil, ErrBadEnergy
	}

	b := spec.Brain
	if b == nil {
		b = brain.NewRuleBased(w.rng.Int63())
	}

	pos := spec.Pos
	if w.cfg.Bounds != nil {
		pos = w.cfg.Bounds.Clamp(pos)
	}

	id := ElementID(w.nextID.Add(1))
	r := &Robot{
		Element:        Element{ID: id, Pos: pos, Color: *spec.Color},
		Energy:         spec.Energy,
		MaxEnergy:      spec.MaxEnergy,
		MoveCost:       spec.MoveCost,
		ReproThreshold: spec.ReproThreshold,
		State:          StateIdle,
		Brain:          b,
		Stats:          RobotStats{BornTick: w.tick.Load()},
	}
	w.robots[id] = r
	w.index.Insert(id, pos)
	w.stats.RecordRobotCreated()
	w.publishAdd(robotObject(r))
	return r, nil
}

// AddStatic validates the spec, allocates an id and inserts the element.
func (w *World) AddStatic(spec StaticSpec) (*StaticElement, error) {
	if spec.Color != nil && !validColor(*spec.Color) {
		return nil, ErrBadColor
	}
	if spec.ResourceType != "" && !validResourceType(spec.ResourceType) {
		return nil, errBadResourceType(spec.ResourceType)
	}
	spec.applyDefaults()

	pos := spec.Pos
	if w.cfg.Bounds != nil {
		pos = w.cfg.Bounds.Clamp(pos)
	}

	id := ElementID(w.nextID.Add(1))
	s := &StaticElement{
		Element:       Element{ID: id, Pos: pos, Color: *spec.Color},
		ResourceValue: spec.ResourceValue,
		InitialValue:  spec.ResourceValue,
		ResourceType:  spec.ResourceType,
		DecayRate:     spec.DecayRate,
		RespawnTime:   copyU64(spec.RespawnTime),
		MaxUses:       copyU64(spec.MaxUses),
		IsObstacle:    spec.IsObstacle,
		IsCollectible: *spec.IsCollectible,
	}
	w.statics[id] = s
	w.index.Insert(id, pos)
	w.publishAdd(staticObject(s))
	return s, nil
}

// RemoveElement deletes a robot or static by id. Removing a live robot
// does not count toward RobotsDestroyed; that counter tracks deaths.
func (w *World) RemoveElement(id ElementID) error {
	if _, ok := w.robots[id]; ok {
		w.conns.dropRobot(id)
		w.index.Remove(id)
		delete(w.robots, id)
		w.publishRemove(id)
		return nil
	}
	if s, ok := w.statics[id]; ok {
		if !s.hidden {
			w.index.Remove(id)
		}
		delete(w.statics, id)
		w.publishRemove(id)
		return nil
	}
	return ErrNotFound
}

// Step advances the simulation one tick. System order is fixed: cleanup,
// decide, move, interact, reproduce, lifecycle, publish.
func (w *World) Step() error {
	start := time.Now()
	now := w.tick.Load()

	w.systemCleanup(now)
	staged := w.systemDecide(now)
	w.systemMovement(now, staged)
	w.systemInteraction(now)
	w.systemReproduction(now)
	w.systemLifecycle(now)
	w.systemPublish()

	if err := w.verifyInvariants(); err != nil {
		return err
	}

	w.stats.RecordStep()

	digest := w.stateDigest(now)
	if w.stepLogger != nil {
		_ = w.stepLogger.WriteStep(StepRecord{
			Tick:        now,
			Digest:      digest,
			Robots:      len(w.robots),
			Statics:     len(w.statics),
			Connections: w.conns.count(),
		})
	}
	if w.statsLogger != nil && now%w.cfg.StatsEveryTicks == 0 {
		_ = w.statsLogger.WriteStats(w.statsSample(now))
	}
	if tr, ok := w.engine.(TickReporter); ok {
		tr.TickComplete(now, len(w.robots), w.visibleStatics())
	}
	if w.snapshotSink != nil && now != 0 && now%w.cfg.SnapshotEveryTicks == 0 {
		snap := w.ExportSnapshot()
		select {
		case w.snapshotSink <- snap:
		default:
			// Drop the snapshot if the sink is backed up.
		}
	}

	w.publishMetricsTimed(now, time.Since(start))
	w.tick.Add(1)
	return nil
}

// StepOnce advances one tick and returns the tick number it executed plus
// the post-step state digest. Intended for replays and tests.
func (w *World) StepOnce() (tick uint64, digest string, err error) {
	tick = w.tick.Load()
	if err = w.Step(); err != nil {
		return tick, "", err
	}
	return tick, w.stateDigest(tick), nil
}

// Run steps the world at the configured rate until ctx is done or Stop is
// called. A failed invariant check stops the loop with the error.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.StepRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case <-ticker.C:
			if err := w.Step(); err != nil {
				return err
			}
		}
	}
}

func (w *World) Stop() { close(w.stop) }

func (w *World) visibleStatics() int {
	n := 0
	for _, s := range w.statics {
		if !s.hidden {
			n++
		}
	}
	return n
}

func (w *World) statsSample(now uint64) StatsSample {
	s := StatsSample{
		Tick:        now,
		Robots:      len(w.robots),
		Statics:     len(w.statics),
		Connections: w.conns.count(),
		Totals:      w.stats.Totals(),
	}
	for _, id := range w.sortedRobotIDs() {
		s.Energies = append(s.Energies, w.robots[id].Energy)
	}
	for _, id := range w.sortedStaticIDs() {
		if st := w.statics[id]; st.collectible() {
			s.ResourceValues = append(s.ResourceValues, st.ResourceValue)
		}
	}
	return s
}

func copyU64(p *uint64) *uint64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
