package world

import "sort"

// pairKey is the canonical key for an edge: A is always the smaller id.
type pairKey struct {
	A, B ElementID
}

func makePairKey(a, b ElementID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{A: a, B: b}
}

// Connection is one undirected edge between two robots. A < B always.
type Connection struct {
	A, B ElementID

	Strength Strength

	// Duration counts steps the pair has spent within connect distance.
	Duration uint64

	LastDistance float64

	// Separation counts consecutive steps spent beyond break distance.
	Separation uint64
}

// connectionGraph keeps the canonical edge set plus a per-robot adjacency
// view onto the same Connection values.
type connectionGraph struct {
	edges   map[pairKey]*Connection
	byRobot map[ElementID]map[ElementID]*Connection
}

func newConnectionGraph() *connectionGraph {
	return &connectionGraph{
		edges:   map[pairKey]*Connection{},
		byRobot: map[ElementID]map[ElementID]*Connection{},
	}
}

func (g *connectionGraph) get(a, b ElementID) *Connection {
	return g.edges[makePairKey(a, b)]
}

// ensure returns the edge for (a, b), creating it when absent. The bool
// reports whether a new edge was created.
func (g *connectionGraph) ensure(a, b ElementID) (*Connection, bool) {
	k := makePairKey(a, b)
	if c := g.edges[k]; c != nil {
		return c, false
	}
	c := &Connection{A: k.A, B: k.B}
	g.edges[k] = c
	g.link(k.A, k.B, c)
	g.link(k.B, k.A, c)
	return c, true
}

func (g *connectionGraph) link(from, to ElementID, c *Connection) {
	m := g.byRobot[from]
	if m == nil {
		m = map[ElementID]*Connection{}
		g.byRobot[from] = m
	}
	m[to] = c
}

func (g *connectionGraph) remove(a, b ElementID) {
	k := makePairKey(a, b)
	if _, ok := g.edges[k]; !ok {
		return
	}
	delete(g.edges, k)
	g.unlink(k.A, k.B)
	g.unlink(k.B, k.A)
}

func (g *connectionGraph) unlink(from, to ElementID) {
	m := g.byRobot[from]
	if m == nil {
		return
	}
	delete(m, to)
	if len(m) == 0 {
		delete(g.byRobot, from)
	}
}

// dropRobot removes every edge touching id and returns how many went.
func (g *connectionGraph) dropRobot(id ElementID) int {
	m := g.byRobot[id]
	if len(m) == 0 {
		delete(g.byRobot, id)
		return 0
	}
	peers := make([]ElementID, 0, len(m))
	for p := range m {
		peers = append(peers, p)
	}
	for _, p := range peers {
		g.remove(id, p)
	}
	return len(peers)
}

// peers lists the robots connected to id, ascending.
func (g *connectionGraph) peers(id ElementID) []ElementID {
	m := g.byRobot[id]
	if len(m) == 0 {
		return nil
	}
	out := make([]ElementID, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (g *connectionGraph) degree(id ElementID) int { return len(g.byRobot[id]) }

func (g *connectionGraph) count() int { return len(g.edges) }

// sortedKeys returns the edge keys ordered by (A, B) for deterministic
// iteration.
func (g *connectionGraph) sortedKeys() []pairKey {
	keys := make([]pairKey, 0, len(g.edges))
	for k := range g.edges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].A != keys[j].A {
			return keys[i].A < keys[j].A
		}
		return keys[i].B < keys[j].B
	})
	return keys
}
