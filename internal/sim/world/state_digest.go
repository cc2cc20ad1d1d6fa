package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// StateDigest hashes the complete simulation state at the current tick.
// It must be called from the world loop goroutine.
func (w *World) StateDigest() string { return w.stateDigest(w.tick.Load()) }

func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	w.digestHeader(h, &tmp, nowTick)
	w.digestRobots(h, &tmp)
	w.digestStatics(h, &tmp)
	w.digestConnections(h, &tmp)
	w.digestTotals(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) digestHeader(h hashWriter, tmp *[8]byte, nowTick uint64) {
	digestWriteU64(h, tmp, nowTick)
	digestWriteI64(h, tmp, w.cfg.Seed)
	digestWriteU64(h, tmp, w.nextID.Load())
}

func (w *World) digestRobots(h hashWriter, tmp *[8]byte) {
	for _, id := range w.sortedRobotIDs() {
		r := w.robots[id]
		digestWriteU64(h, tmp, uint64(id))
		digestWriteF64(h, tmp, r.Pos.X)
		digestWriteF64(h, tmp, r.Pos.Y)
		digestWriteF64(h, tmp, r.Pos.Z)
		digestWriteF64(h, tmp, r.Color.R)
		digestWriteF64(h, tmp, r.Color.G)
		digestWriteF64(h, tmp, r.Color.B)
		digestWriteF64(h, tmp, r.Vel.X)
		digestWriteF64(h, tmp, r.Vel.Y)
		digestWriteF64(h, tmp, r.Vel.Z)
		digestWriteF64(h, tmp, r.Energy)
		digestWriteF64(h, tmp, r.MaxEnergy)
		digestWriteF64(h, tmp, r.MoveCost)
		digestWriteF64(h, tmp, r.ReproThreshold)
		h.Write([]byte{byte(r.State)})
		digestWriteU64(h, tmp, r.NextReproTick)
		h.Write([]byte(r.Brain.Kind()))
		digestWriteF64(h, tmp, r.Stats.DistanceTraveled)
		digestWriteU64(h, tmp, r.Stats.ResourcesCollected)
		digestWriteU64(h, tmp, r.Stats.OffspringProduced)
		digestWriteU64(h, tmp, r.Stats.ConnectionsFormed)
		digestWriteF64(h, tmp, r.Stats.EnergyConsumed)
		digestWriteU64(h, tmp, r.Stats.BornTick)
	}
}

func (w *World) digestStatics(h hashWriter, tmp *[8]byte) {
	for _, id := range w.sortedStaticIDs() {
		s := w.statics[id]
		digestWriteU64(h, tmp, uint64(id))
		digestWriteF64(h, tmp, s.Pos.X)
		digestWriteF64(h, tmp, s.Pos.Y)
		digestWriteF64(h, tmp, s.Pos.Z)
		digestWriteF64(h, tmp, s.Color.R)
		digestWriteF64(h, tmp, s.Color.G)
		digestWriteF64(h, tmp, s.Color.B)
		digestWriteF64(h, tmp, s.ResourceValue)
		digestWriteF64(h, tmp, s.InitialValue)
		h.Write([]byte(s.ResourceType))
		digestWriteF64(h, tmp, s.DecayRate)
		writeOptU64(h, tmp, s.RespawnTime)
		writeOptU64(h, tmp, s.MaxUses)
		digestWriteU64(h, tmp, s.Uses)
		h.Write([]byte{boolByte(s.IsObstacle), boolByte(s.IsCollectible), boolByte(s.exhausted), boolByte(s.hidden)})
		digestWriteU64(h, tmp, s.respawnLeft)
	}
}

func (w *World) digestConnections(h hashWriter, tmp *[8]byte) {
	for _, k := range w.conns.sortedKeys() {
		c := w.conns.edges[k]
		digestWriteU64(h, tmp, uint64(c.A))
		digestWriteU64(h, tmp, uint64(c.B))
		h.Write([]byte{byte(c.Strength)})
		digestWriteU64(h, tmp, c.Duration)
		digestWriteF64(h, tmp, c.LastDistance)
		digestWriteU64(h, tmp, c.Separation)
	}
}

func (w *World) digestTotals(h hashWriter, tmp *[8]byte) {
	t := w.stats.Totals()
	digestWriteU64(h, tmp, t.Steps)
	digestWriteU64(h, tmp, t.RobotsCreated)
	digestWriteU64(h, tmp, t.RobotsDestroyed)
	digestWriteF64(h, tmp, t.ResourcesCollected)
	digestWriteU64(h, tmp, t.ConnectionsMade)
	digestWriteU64(h, tmp, t.OffspringProduced)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hashWriter, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func writeOptU64(h hashWriter, tmp *[8]byte, p *uint64) {
	if p == nil {
		h.Write([]byte{0})
		return
	}
	h.Write([]byte{1})
	digestWriteU64(h, tmp, *p)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
