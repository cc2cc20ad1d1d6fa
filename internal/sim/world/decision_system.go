package world

import "botworld.ai/internal/sim/brain"

type stagedAction struct {
	id  ElementID
	act brain.Action
}

// systemDecide asks every robot's brain for an action, ascending by id.
// Brains only ever see an Observation, never the world.
func (w *World) systemDecide(now uint64) []stagedAction {
	ids := w.sortedRobotIDs()
	staged := make([]stagedAction, 0, len(ids))
	for _, id := range ids {
		r := w.robots[id]
		if !r.Alive() {
			continue
		}
		obs := w.buildObservation(r)
		staged = append(staged, stagedAction{id: id, act: w.safeDecide(r, obs)})
	}
	return staged
}

// safeDecide contains brain failures: a panic, an error, or an undefined
// action all degrade to Stay so one broken policy cannot take down the
// loop.
func (w *World) safeDecide(r *Robot, obs brain.Observation) (act brain.Action) {
	defer func() {
		if p := recover(); p != nil {
			w.log.Printf("robot %d brain panic: %v", r.ID, p)
			act = brain.Stay
		}
	}()
	a, err := r.Brain.Decide(obs)
	if err != nil {
		w.log.Printf("robot %d brain error: %v", r.ID, err)
		return brain.Stay
	}
	if !a.Valid() {
		w.log.Printf("robot %d brain returned invalid action %d", r.ID, int(a))
		return brain.Stay
	}
	return a
}
