package world

import "botworld.ai/internal/sim/brain"

// buildObservation assembles the read-only view handed to a brain: the
// robot's own vitals plus the nearest collectible resource and nearest
// other robot inside sensor range. Distance ties keep the lower id.
func (w *World) buildObservation(r *Robot) brain.Observation {
	obs := brain.Observation{
		Energy:      r.Energy,
		MaxEnergy:   r.MaxEnergy,
		X:           r.Pos.X,
		Y:           r.Pos.Y,
		Z:           r.Pos.Z,
		Connections: w.conns.degree(r.ID),
		State:       int(r.State),
	}

	w.scratch = w.index.NeighborsInto(w.scratch, r.ID, w.cfg.SensorRadius)
	bestRes, bestBot := -1.0, -1.0
	for _, id := range w.scratch {
		if s, ok := w.statics[id]; ok {
			if !s.collectible() {
				continue
			}
			d := r.Pos.Dist(s.Pos)
			if bestRes < 0 || d < bestRes {
				bestRes = d
				obs.NearestResource = summarize(r.Pos, s.ID, s.Pos, d, s.ResourceValue)
			}
			continue
		}
		if o, ok := w.robots[id]; ok && o.Alive() {
			d := r.Pos.Dist(o.Pos)
			if bestBot < 0 || d < bestBot {
				bestBot = d
				obs.NearestRobot = summarize(r.Pos, o.ID, o.Pos, d, o.Energy)
			}
		}
	}
	return obs
}

func summarize(from Vec3, id ElementID, at Vec3, dist, value float64) *brain.EntitySummary {
	return &brain.EntitySummary{
		ID:       uint64(id),
		DX:       at.X - from.X,
		DY:       at.Y - from.Y,
		DZ:       at.Z - from.Z,
		Distance: dist,
		Value:    value,
	}
}
