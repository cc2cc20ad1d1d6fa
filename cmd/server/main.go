package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"botworld.ai/internal/persistence/archive"
	"botworld.ai/internal/persistence/snapshot"
	"botworld.ai/internal/persistence/statscsv"
	"botworld.ai/internal/persistence/steplog"
	"botworld.ai/internal/setup"
	"botworld.ai/internal/sim/tuning"
	"botworld.ai/internal/sim/world"
	"botworld.ai/internal/transport/viz"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldName  = flag.String("world", "default", "world name")
		seed       = flag.Int64("seed", 0, "seed override for fresh worlds (0 keeps the world file's seed)")
		configDir  = flag.String("configs", "./configs", "config directory")
		worldFile  = flag.String("world_file", "", "path to world.yaml (default: <configs>/world.yaml)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite run index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")

		keepSnapshots  = flag.Int("keep_snapshots", 24, "regular snapshots retained on disk (0 keeps all)")
		milestoneEvery = flag.Uint64("milestone_every_ticks", 0, "archive a milestone snapshot copy on these tick boundaries; use a multiple of snapshot_every_ticks (0 disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	worldDir := filepath.Join(*dataDir, "worlds", *worldName)
	_ = os.MkdirAll(worldDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	wp := strings.TrimSpace(*worldFile)
	if wp == "" {
		wp = filepath.Join(*configDir, "world.yaml")
	}

	runID := uuid.NewString()

	// Optional: run index (does not affect sim determinism).
	idx, err := openRunIndex(worldDir, runID, *disableDB)
	if err != nil {
		logger.Fatalf("open run index: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}

	// Load tuning (required for fresh worlds; snapshots carry the
	// simulation parameters, so a resume tolerates a missing file).
	tune, tuneErr := tuning.Load(tp)
	if tuneErr != nil {
		if snapshotToLoad == "" || !os.IsNotExist(tuneErr) {
			logger.Fatalf("load tuning: %v", tuneErr)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	// The engine must be attached before the first entity exists so the
	// scene the hub replays to new viewers is complete.
	hub := viz.NewHub(logger)

	var w *world.World
	if snapshotToLoad != "" {
		snap, err := snapshot.Read(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldName {
			logger.Fatalf("snapshot world mismatch: flag=%s snap=%s", *worldName, snap.Header.WorldID)
		}
		cfg := world.ConfigFromSnapshot(snap)
		// Operational cadences may change between runs; simulation
		// parameters stay with the snapshot.
		if tune.StepRateHz > 0 {
			cfg.StepRateHz = tune.StepRateHz
		}
		if tune.SnapshotEveryTicks > 0 {
			cfg.SnapshotEveryTicks = uint64(tune.SnapshotEveryTicks)
		}
		if tune.StatsEveryTicks > 0 {
			cfg.StatsEveryTicks = uint64(tune.StatsEveryTicks)
		}
		w, err = world.New(cfg)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
		w.SetLogger(logger)
		w.SetEngine(hub)
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed world=%s snapshot=%s tick=%d robots=%d statics=%d",
			*worldName, filepath.Base(snapshotToLoad), w.CurrentTick(), w.RobotCount(), w.StaticCount())
	} else {
		f, err := setup.Load(wp)
		if err != nil {
			logger.Fatalf("load world file: %v", err)
		}
		cfg := mergeTuning(f.Config(), tune)
		cfg.Name = *worldName
		if *seed != 0 {
			cfg.Seed = *seed
		}
		w, err = world.New(cfg)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
		w.SetLogger(logger)
		w.SetEngine(hub)
		if err := setup.Apply(w, f); err != nil {
			logger.Fatalf("apply world file: %v", err)
		}
		logger.Printf("fresh world=%s seed=%d robots=%d statics=%d",
			cfg.Name, cfg.Seed, w.RobotCount(), w.StaticCount())
	}

	if idx != nil {
		if err := idx.RecordRun(*worldName, w.Config().Seed, tune.ProtocolVersion); err != nil {
			logger.Printf("run index: record run: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	stepLog, err := steplog.NewWriter(filepath.Join(worldDir, "steps", runID+".jsonl.zst"))
	if err != nil {
		logger.Fatalf("open step log: %v", err)
	}
	defer stepLog.Close()
	w.SetStepLogger(multiStepLogger{a: stepLog, b: idx})

	statsLog, err := statscsv.NewWriter(filepath.Join(worldDir, "stats", runID+".csv"))
	if err != nil {
		logger.Fatalf("open stats log: %v", err)
	}
	defer statsLog.Close()
	w.SetStatsLogger(statsLog)

	// Snapshot writer. Runs off the world loop so a slow disk cannot
	// stall the step.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		snapDir := filepath.Join(worldDir, "snapshots")
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(snapDir, fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
				if err := snapshot.Write(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
				if n, archivedPath, ok, err := archive.Milestone(worldDir, path, snap, *milestoneEvery); err != nil {
					logger.Printf("milestone archive: %v", err)
				} else if ok {
					logger.Printf("milestone %d archived: %s", n, archivedPath)
				}
				if removed, err := archive.Prune(snapDir, *keepSnapshots); err != nil {
					logger.Printf("snapshot prune: %v", err)
				} else if removed > 0 {
					logger.Printf("pruned %d snapshots (keep %d)", removed, *keepSnapshots)
				}
			}
		}
	}()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := w.Metrics()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP botworld_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE botworld_world_tick gauge\n")
		fmt.Fprintf(rw, "botworld_world_tick{world=%q} %d\n", *worldName, m.Tick)

		fmt.Fprintf(rw, "# HELP botworld_world_robots Current number of robots.\n")
		fmt.Fprintf(rw, "# TYPE botworld_world_robots gauge\n")
		fmt.Fprintf(rw, "botworld_world_robots{world=%q} %d\n", *worldName, m.Robots)

		fmt.Fprintf(rw, "# HELP botworld_world_statics Current number of static elements.\n")
		fmt.Fprintf(rw, "# TYPE botworld_world_statics gauge\n")
		fmt.Fprintf(rw, "botworld_world_statics{world=%q} %d\n", *worldName, m.Statics)

		fmt.Fprintf(rw, "# HELP botworld_world_connections Current number of connections.\n")
		fmt.Fprintf(rw, "# TYPE botworld_world_connections gauge\n")
		fmt.Fprintf(rw, "botworld_world_connections{world=%q} %d\n", *worldName, m.Connections)

		fmt.Fprintf(rw, "# HELP botworld_world_sessions Connected viewer sessions.\n")
		fmt.Fprintf(rw, "# TYPE botworld_world_sessions gauge\n")
		fmt.Fprintf(rw, "botworld_world_sessions{world=%q} %d\n", *worldName, hub.SessionCount())

		fmt.Fprintf(rw, "# HELP botworld_world_step_ms Last step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE botworld_world_step_ms gauge\n")
		fmt.Fprintf(rw, "botworld_world_step_ms{world=%q} %.3f\n", *worldName, m.StepMS)

		fmt.Fprintf(rw, "# HELP botworld_world_total Lifetime counters.\n")
		fmt.Fprintf(rw, "# TYPE botworld_world_total counter\n")
		fmt.Fprintf(rw, "botworld_world_total{world=%q,counter=%q} %d\n", *worldName, "steps", m.Totals.Steps)
		fmt.Fprintf(rw, "botworld_world_total{world=%q,counter=%q} %d\n", *worldName, "robots_created", m.Totals.RobotsCreated)
		fmt.Fprintf(rw, "botworld_world_total{world=%q,counter=%q} %d\n", *worldName, "robots_destroyed", m.Totals.RobotsDestroyed)
		fmt.Fprintf(rw, "botworld_world_total{world=%q,counter=%q} %.3f\n", *worldName, "resources_collected", m.Totals.ResourcesCollected)
		fmt.Fprintf(rw, "botworld_world_total{world=%q,counter=%q} %d\n", *worldName, "connections_made", m.Totals.ConnectionsMade)
		fmt.Fprintf(rw, "botworld_world_total{world=%q,counter=%q} %d\n", *worldName, "offspring_produced", m.Totals.OffspringProduced)

		fmt.Fprintf(rw, "# HELP botworld_stats_window Rolling window activity.\n")
		fmt.Fprintf(rw, "# TYPE botworld_stats_window gauge\n")
		fmt.Fprintf(rw, "botworld_stats_window{world=%q,metric=%q} %d\n", *worldName, "moves", m.StatsWindow.Moves)
		fmt.Fprintf(rw, "botworld_stats_window{world=%q,metric=%q} %d\n", *worldName, "collections", m.StatsWindow.Collections)
		fmt.Fprintf(rw, "botworld_stats_window{world=%q,metric=%q} %d\n", *worldName, "connections", m.StatsWindow.Connections)
		fmt.Fprintf(rw, "botworld_stats_window{world=%q,metric=%q} %d\n", *worldName, "disconnections", m.StatsWindow.Disconnections)
		fmt.Fprintf(rw, "botworld_stats_window{world=%q,metric=%q} %d\n", *worldName, "births", m.StatsWindow.Births)
		fmt.Fprintf(rw, "botworld_stats_window{world=%q,metric=%q} %d\n", *worldName, "deaths", m.StatsWindow.Deaths)

		fmt.Fprintf(rw, "# HELP botworld_stats_window_ticks Rolling window size in ticks.\n")
		fmt.Fprintf(rw, "# TYPE botworld_stats_window_ticks gauge\n")
		fmt.Fprintf(rw, "botworld_stats_window_ticks{world=%q} %d\n", *worldName, m.StatsWindowTicks)
	})

	if envBool("BW_ENABLE_ADMIN_HTTP", true) {
		// Local-only read endpoints. The world accepts no remote mutations.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				World   string             `json:"world"`
				RunID   string             `json:"run_id"`
				Tick    uint64             `json:"tick"`
				Metrics world.WorldMetrics `json:"metrics"`
			}{
				World:   *worldName,
				RunID:   runID,
				Tick:    w.CurrentTick(),
				Metrics: w.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/runs", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			if idx == nil {
				http.Error(rw, "run index disabled", http.StatusServiceUnavailable)
				return
			}
			runs, err := idx.Runs()
			if err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(runs)
		})
	} else {
		logger.Printf("admin endpoints disabled (BW_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("BW_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", viz.NewServer(w, hub, logger).WSHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s run=%s", *addr, runID)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// mergeTuning lays the tuning knobs over a world file's identity config.
// Zero values defer to the world package defaults.
func mergeTuning(cfg world.WorldConfig, tune tuning.Tuning) world.WorldConfig {
	cfg.StepRateHz = tune.StepRateHz
	cfg.CellSize = tune.CellSize
	cfg.SensorRadius = tune.SensorRadius
	cfg.ProximityThreshold = tune.ProximityThreshold
	cfg.CollectRange = tune.CollectRange
	cfg.UptakeAmount = tune.UptakeAmount
	cfg.ConnectThreshold = tune.Connections.ConnectThreshold
	cfg.BreakThreshold = tune.Connections.BreakThreshold
	if v := tune.Connections.StrengthenEvery; v > 0 {
		cfg.StrengthenEvery = uint64(v)
	}
	if v := tune.Connections.WeakenEvery; v > 0 {
		cfg.WeakenEvery = uint64(v)
	}
	cfg.CloneEnergyCost = tune.Reproduction.CloneEnergyCost
	cfg.CrossoverEnergyCost = tune.Reproduction.CrossoverEnergyCost
	cfg.OffspringEnergyFrac = tune.Reproduction.OffspringEnergyFrac
	cfg.MutationRate = tune.Reproduction.MutationRate
	cfg.BrainMutationRate = tune.Reproduction.BrainMutationRate
	if v := tune.Reproduction.CooldownSteps; v > 0 {
		cfg.ReproCooldownSteps = uint64(v)
	}
	cfg.SpawnJitter = tune.Reproduction.SpawnJitter
	cfg.MaxPopulation = tune.MaxPopulation
	if v := tune.SnapshotEveryTicks; v > 0 {
		cfg.SnapshotEveryTicks = uint64(v)
	}
	if v := tune.StatsEveryTicks; v > 0 {
		cfg.StatsEveryTicks = uint64(v)
	}
	return cfg
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// multiStepLogger fans one step record out to the JSONL log and the run
// index. The log is the source of truth; index errors are dropped.
type multiStepLogger struct {
	a world.StepLogger
	b world.StepLogger
}

func (m multiStepLogger) WriteStep(rec world.StepRecord) error {
	if m.a != nil {
		_ = m.a.WriteStep(rec)
	}
	if m.b != nil {
		_ = m.b.WriteStep(rec)
	}
	return nil
}
