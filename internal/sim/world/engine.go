package world

// ModelKind selects the render primitive a viewer should draw.
type ModelKind string

const (
	ModelCube   ModelKind = "cube"
	ModelSphere ModelKind = "sphere"
)

// ObjectState is the render-facing view of one entity.
type ObjectState struct {
	ID    ElementID
	Pos   Vec3
	Color Color
	Model ModelKind
	Scale float64
}

// Engine receives scene changes as the simulation publishes them. The
// world calls it only from the loop goroutine; implementations that fan
// out to the network must do their own buffering.
type Engine interface {
	AddObject(obj ObjectState) error
	UpdateObject(obj ObjectState) error
	RemoveObject(id ElementID) error
}

// TickReporter is an optional Engine extension notified after each
// completed step.
type TickReporter interface {
	TickComplete(tick uint64, robots, statics int)
}

type nullEngine struct{}

func (nullEngine) AddObject(ObjectState) error    { return nil }
func (nullEngine) UpdateObject(ObjectState) error { return nil }
func (nullEngine) RemoveObject(ElementID) error   { return nil }

func robotObject(r *Robot) ObjectState {
	return ObjectState{ID: r.ID, Pos: r.Pos, Color: r.Color, Model: ModelCube, Scale: 1.0}
}

func staticObject(s *StaticElement) ObjectState {
	return ObjectState{ID: s.ID, Pos: s.Pos, Color: s.Color, Model: ModelSphere, Scale: 1.0}
}

// Engine failures must not stall the simulation: log and move on.

func (w *World) publishAdd(obj ObjectState) {
	if err := w.engine.AddObject(obj); err != nil {
		w.log.Printf("engine add %d: %v", obj.ID, err)
	}
	w.lastPublished[obj.ID] = obj
}

func (w *World) publishUpdate(obj ObjectState) {
	if err := w.engine.UpdateObject(obj); err != nil {
		w.log.Printf("engine update %d: %v", obj.ID, err)
	}
	w.lastPublished[obj.ID] = obj
}

func (w *World) publishRemove(id ElementID) {
	if _, ok := w.lastPublished[id]; !ok {
		return
	}
	if err := w.engine.RemoveObject(id); err != nil {
		w.log.Printf("engine remove %d: %v", id, err)
	}
	delete(w.lastPublished, id)
}

// systemPublish diffs current entity state against what the engine last
// saw and emits updates for anything that moved or recolored. Adds and
// removes are published eagerly at their mutation sites.
func (w *World) systemPublish() {
	for _, id := range w.sortedRobotIDs() {
		r := w.robots[id]
		obj := robotObject(r)
		last, ok := w.lastPublished[id]
		if !ok {
			w.publishAdd(obj)
			continue
		}
		if last.Pos != obj.Pos || last.Color != obj.Color {
			w.publishUpdate(obj)
		}
	}
	for _, id := range w.sortedStaticIDs() {
		s := w.statics[id]
		if s.hidden {
			continue
		}
		obj := staticObject(s)
		last, ok := w.lastPublished[id]
		if !ok {
			w.publishAdd(obj)
			continue
		}
		if last.Pos != obj.Pos || last.Color != obj.Color {
			w.publishUpdate(obj)
		}
	}
}
