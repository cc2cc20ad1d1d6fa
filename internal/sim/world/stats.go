package world

// StatsTotals are the lifetime counters carried in snapshots.
// ConnectionsMade counts endpoints: forming one edge adds two.
type StatsTotals struct {
	Steps              uint64
	RobotsCreated      uint64
	RobotsDestroyed    uint64
	ResourcesCollected float64
	ConnectionsMade    uint64
	OffspringProduced  uint64
}

// StatsBucket is one windowed slice of recent activity.
type StatsBucket struct {
	Moves          int
	Collections    int
	Connections    int
	Disconnections int
	Births         int
	Deaths         int
}

type WorldStats struct {
	bucketTicks uint64
	windowTicks uint64

	buckets []StatsBucket
	curIdx  int
	curBase uint64 // start tick (inclusive) of current bucket

	totals StatsTotals
}

func NewWorldStats(bucketTicks, windowTicks uint64) *WorldStats {
	if bucketTicks <= 0 {
		bucketTicks = 60
	}
	if windowTicks < bucketTicks {
		windowTicks = bucketTicks
	}
	n := int(windowTicks / bucketTicks)
	if n < 1 {
		n = 1
	}
	return &WorldStats{
		bucketTicks: bucketTicks,
		windowTicks: uint64(n) * bucketTicks,
		buckets:     make([]StatsBucket, n),
	}
}

func (s *WorldStats) rotate(nowTick uint64) {
	if s == nil {
		return
	}
	// Move forward until nowTick is in [curBase, curBase+bucketTicks).
	for nowTick >= s.curBase+s.bucketTicks {
		s.curIdx = (s.curIdx + 1) % len(s.buckets)
		s.buckets[s.curIdx] = StatsBucket{}
		s.curBase += s.bucketTicks
	}
}

func (s *WorldStats) RecordStep() {
	if s == nil {
		return
	}
	s.totals.Steps++
}

func (s *WorldStats) RecordRobotCreated() {
	if s == nil {
		return
	}
	s.totals.RobotsCreated++
}

func (s *WorldStats) RecordRobotDestroyed(nowTick uint64) {
	if s == nil {
		return
	}
	s.rotate(nowTick)
	s.totals.RobotsDestroyed++
	s.buckets[s.curIdx].Deaths++
}

func (s *WorldStats) RecordMove(nowTick uint64) {
	if s == nil {
		return
	}
	s.rotate(nowTick)
	s.buckets[s.curIdx].Moves++
}

func (s *WorldStats) RecordCollection(nowTick uint64, amount float64) {
	if s == nil {
		return
	}
	s.rotate(nowTick)
	s.totals.ResourcesCollected += amount
	s.buckets[s.curIdx].Collections++
}

// RecordConnection records one robot gaining a connection. Forming an
// edge calls this once per endpoint.
func (s *WorldStats) RecordConnection(nowTick uint64) {
	if s == nil {
		return
	}
	s.rotate(nowTick)
	s.totals.ConnectionsMade++
	s.buckets[s.curIdx].Connections++
}

func (s *WorldStats) RecordDisconnection(nowTick uint64) {
	if s == nil {
		return
	}
	s.rotate(nowTick)
	s.buckets[s.curIdx].Disconnections++
}

func (s *WorldStats) RecordOffspring(nowTick uint64) {
	if s == nil {
		return
	}
	s.rotate(nowTick)
	s.totals.OffspringProduced++
	s.buckets[s.curIdx].Births++
}

func (s *WorldStats) Totals() StatsTotals {
	if s == nil {
		return StatsTotals{}
	}
	return s.totals
}

// SetTotals replaces the lifetime counters, used on snapshot import.
func (s *WorldStats) SetTotals(t StatsTotals) {
	if s == nil {
		return
	}
	s.totals = t
}

func (s *WorldStats) WindowTicks() uint64 {
	if s == nil {
		return 0
	}
	return s.windowTicks
}

func (s *WorldStats) Summarize(nowTick uint64) StatsBucket {
	if s == nil {
		return StatsBucket{}
	}
	s.rotate(nowTick)
	var out StatsBucket
	for _, b := range s.buckets {
		out.Moves += b.Moves
		out.Collections += b.Collections
		out.Connections += b.Connections
		out.Disconnections += b.Disconnections
		out.Births += b.Births
		out.Deaths += b.Deaths
	}
	return out
}
