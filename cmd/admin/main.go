package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"botworld.ai/internal/persistence/archive"
	"botworld.ai/internal/persistence/indexdb"
	"botworld.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "state":
			stateCmd(os.Args[2:])
			return
		case "runs":
			runsCmd(os.Args[2:])
			return
		case "snapshots":
			snapshotsCmd(os.Args[2:])
			return
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "prune":
			pruneCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldName := fs.String("world", "", "world name (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldName != "" {
		base = filepath.Join(base, *worldName)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	addr := fs.String("addr", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	body := getJSON(*addr + "/admin/v1/state")
	_, _ = os.Stdout.Write(body)
}

func runsCmd(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	addr := fs.String("addr", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	body := getJSON(*addr + "/admin/v1/runs")
	var runs []indexdb.RunRow
	if err := json.Unmarshal(body, &runs); err != nil {
		fmt.Fprintln(os.Stderr, "decode:", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return
	}
	for _, r := range runs {
		fmt.Printf("%s  world=%s seed=%d protocol=%s started=%s\n",
			r.ID, r.World, r.Seed, r.Protocol, r.StartedAt)
	}
}

func snapshotsCmd(args []string) {
	fs := flag.NewFlagSet("snapshots", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldName := fs.String("world", "default", "world name")
	_ = fs.Parse(args)

	dir := filepath.Join(*dataDir, "worlds", *worldName, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}

	type snapFile struct {
		tick uint64
		name string
		size int64
	}
	files := make([]snapFile, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(e.Name(), ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, snapFile{tick: tick, name: e.Name(), size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].tick < files[j].tick })
	for _, f := range files {
		fmt.Printf("%10d  %8d bytes  %s\n", f.tick, f.size, filepath.Join(dir, f.name))
	}
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	snapPath := fs.String("snapshot", "", "snapshot path")
	robots := fs.Bool("robots", false, "list robots")
	_ = fs.Parse(args)

	if strings.TrimSpace(*snapPath) == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}
	snap, err := snapshot.Read(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	fmt.Printf("world=%s tick=%d seed=%d next_id=%d\n",
		snap.Header.WorldID, snap.Header.Tick, snap.Seed, snap.NextID)
	fmt.Printf("robots=%d statics=%d connections=%d\n",
		len(snap.Robots), len(snap.Statics), len(snap.Connections))
	fmt.Printf("totals: steps=%d created=%d destroyed=%d collected=%.1f connections=%d offspring=%d\n",
		snap.Stats.Steps, snap.Stats.RobotsCreated, snap.Stats.RobotsDestroyed,
		snap.Stats.ResourcesCollected, snap.Stats.ConnectionsMade, snap.Stats.OffspringProduced)

	if *robots {
		for _, r := range snap.Robots {
			kind := "default"
			if r.Brain != nil {
				kind = r.Brain.Kind
			}
			fmt.Printf("  robot %d state=%s energy=%.1f/%.1f pos=(%.1f,%.1f,%.1f) brain=%s\n",
				r.ID, r.State, r.Energy, r.MaxEnergy, r.Pos[0], r.Pos[1], r.Pos[2], kind)
		}
	}
}

func pruneCmd(args []string) {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldName := fs.String("world", "default", "world name")
	keep := fs.Int("keep", 24, "snapshots to keep")
	_ = fs.Parse(args)

	dir := filepath.Join(*dataDir, "worlds", *worldName, "snapshots")
	removed, err := archive.Prune(dir, *keep)
	if err != nil {
		fmt.Fprintln(os.Stderr, "prune:", err)
		os.Exit(1)
	}
	fmt.Printf("pruned %d snapshots (keep %d) in %s\n", removed, *keep, dir)
}

func getJSON(url string) []byte {
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(url)
	if err != nil {
		fmt.Fprintln(os.Stderr, "get:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "%s: %s\n", resp.Status, strings.TrimSpace(string(body)))
		os.Exit(1)
	}
	return body
}
