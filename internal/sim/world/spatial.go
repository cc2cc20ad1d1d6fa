package world

import (
	"math"
	"sort"
)

// SpatialIndex buckets positions into uniform grid cells so range queries
// scan only the cells a sphere can touch. It indexes live robots and
// visible statics; hidden statics are removed until they respawn.
type SpatialIndex struct {
	cellSize float64
	cells    map[cellKey][]ElementID
	pos      map[ElementID]Vec3
}

func NewSpatialIndex(cellSize float64) *SpatialIndex {
	if cellSize <= 0 {
		cellSize = 5.0
	}
	return &SpatialIndex{
		cellSize: cellSize,
		cells:    map[cellKey][]ElementID{},
		pos:      map[ElementID]Vec3{},
	}
}

func (s *SpatialIndex) cellOf(p Vec3) cellKey {
	return cellKey{
		X: int(math.Floor(p.X / s.cellSize)),
		Y: int(math.Floor(p.Y / s.cellSize)),
		Z: int(math.Floor(p.Z / s.cellSize)),
	}
}

func (s *SpatialIndex) Insert(id ElementID, p Vec3) {
	if _, ok := s.pos[id]; ok {
		s.Move(id, p)
		return
	}
	s.pos[id] = p
	k := s.cellOf(p)
	s.cells[k] = append(s.cells[k], id)
}

func (s *SpatialIndex) Remove(id ElementID) {
	p, ok := s.pos[id]
	if !ok {
		return
	}
	delete(s.pos, id)
	s.removeFromCell(s.cellOf(p), id)
}

func (s *SpatialIndex) Move(id ElementID, p Vec3) {
	old, ok := s.pos[id]
	if !ok {
		s.Insert(id, p)
		return
	}
	s.pos[id] = p
	from, to := s.cellOf(old), s.cellOf(p)
	if from == to {
		return
	}
	s.removeFromCell(from, id)
	s.cells[to] = append(s.cells[to], id)
}

func (s *SpatialIndex) removeFromCell(k cellKey, id ElementID) {
	members := s.cells[k]
	for i, m := range members {
		if m == id {
			members[i] = members[len(members)-1]
			members = members[:len(members)-1]
			break
		}
	}
	if len(members) == 0 {
		delete(s.cells, k)
		return
	}
	s.cells[k] = members
}

func (s *SpatialIndex) Position(id ElementID) (Vec3, bool) {
	p, ok := s.pos[id]
	return p, ok
}

func (s *SpatialIndex) Len() int { return len(s.pos) }

// QueryRadius returns ids within r of center (inclusive), ascending by id.
func (s *SpatialIndex) QueryRadius(center Vec3, r float64) []ElementID {
	return s.QueryRadiusInto(nil, center, r)
}

// QueryRadiusInto appends matches to dst to avoid per-step allocations.
func (s *SpatialIndex) QueryRadiusInto(dst []ElementID, center Vec3, r float64) []ElementID {
	dst = dst[:0]
	if r < 0 {
		return dst
	}
	lo := s.cellOf(Vec3{center.X - r, center.Y - r, center.Z - r})
	hi := s.cellOf(Vec3{center.X + r, center.Y + r, center.Z + r})
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				for _, id := range s.cells[cellKey{x, y, z}] {
					if s.pos[id].Dist(center) <= r {
						dst = append(dst, id)
					}
				}
			}
		}
	}
	sort.Slice(dst, func(i, j int) bool { return dst[i] < dst[j] })
	return dst
}

// Neighbors returns the ids within r of id's position, ascending, with id
// itself excluded. An unindexed id has no neighbors.
func (s *SpatialIndex) Neighbors(id ElementID, r float64) []ElementID {
	return s.NeighborsInto(nil, id, r)
}

// NeighborsInto is Neighbors with a reusable destination slice.
func (s *SpatialIndex) NeighborsInto(dst []ElementID, id ElementID, r float64) []ElementID {
	center, ok := s.pos[id]
	if !ok {
		return dst[:0]
	}
	dst = s.QueryRadiusInto(dst, center, r)
	for i, m := range dst {
		if m == id {
			return append(dst[:i], dst[i+1:]...)
		}
	}
	return dst
}

// Nearest returns the up-to-k indexed ids closest to center, nearest
// first. Distance ties keep the lower id.
func (s *SpatialIndex) Nearest(center Vec3, k int) []ElementID {
	if k <= 0 || len(s.pos) == 0 {
		return nil
	}
	type cand struct {
		id ElementID
		d  float64
	}
	cands := make([]cand, 0, len(s.pos))
	for id, p := range s.pos {
		cands = append(cands, cand{id: id, d: p.Dist(center)})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].d != cands[j].d {
			return cands[i].d < cands[j].d
		}
		return cands[i].id < cands[j].id
	})
	if k > len(cands) {
		k = len(cands)
	}
	out := make([]ElementID, k)
	for i := range out {
		out[i] = cands[i].id
	}
	return out
}
