package world

// systemCleanup removes robots that finished the previous step dead, so a
// death is visible in exactly one published state before the entity goes.
func (w *World) systemCleanup(now uint64) {
	for _, id := range w.sortedRobotIDs() {
		r := w.robots[id]
		if r.Alive() {
			continue
		}
		dropped := w.conns.dropRobot(id)
		for i := 0; i < dropped; i++ {
			w.stats.RecordDisconnection(now)
			w.stats.RecordDisconnection(now)
		}
		w.index.Remove(id)
		delete(w.robots, id)
		w.publishRemove(id)
		w.stats.RecordRobotDestroyed(now)
	}
}

// systemLifecycle ages the static elements: decay, exhaustion, despawn
// and timed respawn. A hidden element starts counting down the step after
// it disappears.
func (w *World) systemLifecycle(now uint64) {
	for _, id := range w.sortedStaticIDs() {
		s := w.statics[id]

		if s.IsCollectible && !s.exhausted && !s.hidden && s.DecayRate > 0 {
			s.ResourceValue -= s.DecayRate
			if s.ResourceValue <= 0 {
				s.exhaust()
			}
		}

		if !s.exhausted {
			continue
		}

		if s.RespawnTime == nil {
			if !s.hidden {
				w.index.Remove(id)
			}
			delete(w.statics, id)
			w.publishRemove(id)
			continue
		}

		if !s.hidden {
			s.hidden = true
			s.respawnLeft = *s.RespawnTime
			w.index.Remove(id)
			w.publishRemove(id)
			continue
		}

		if s.respawnLeft > 0 {
			s.respawnLeft--
		}
		if s.respawnLeft == 0 {
			s.ResourceValue = s.InitialValue
			s.Uses = 0
			s.exhausted = false
			s.hidden = false
			w.index.Insert(id, s.Pos)
			w.publishAdd(staticObject(s))
		}
	}
}
