// Package viz streams live scene state to websocket viewers. The world
// publishes through the Engine interface; the hub fans events out to
// subscribed sessions without ever blocking the simulation loop.
package viz

import (
	"encoding/json"
	"log"
	"sort"
	"sync"

	"botworld.ai/internal/protocol"
	"botworld.ai/internal/sim/world"
)

// Hub keeps the current scene and the set of attached sessions. Engine
// methods are called from the world loop; Join and Leave from HTTP
// handler goroutines.
type Hub struct {
	log *log.Logger

	mu       sync.Mutex
	sessions map[string]*session
	scene    map[world.ElementID]world.ObjectState
}

type session struct {
	id      string
	out     chan []byte
	dropped int
}

const sessionBuffer = 4096

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		log:      logger,
		sessions: map[string]*session{},
		scene:    map[world.ElementID]world.ObjectState{},
	}
}

var (
	_ world.Engine       = (*Hub)(nil)
	_ world.TickReporter = (*Hub)(nil)
)

func (h *Hub) AddObject(obj world.ObjectState) error {
	b, err := json.Marshal(addMsg(obj))
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scene[obj.ID] = obj
	h.broadcastLocked(b)
	return nil
}

func (h *Hub) UpdateObject(obj world.ObjectState) error {
	b, err := json.Marshal(updateMsg(obj))
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scene[obj.ID] = obj
	h.broadcastLocked(b)
	return nil
}

func (h *Hub) RemoveObject(id world.ElementID) error {
	b, err := json.Marshal(protocol.RemoveMsg{Type: protocol.TypeRemove, ID: uint64(id)})
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.scene, id)
	h.broadcastLocked(b)
	return nil
}

// TickComplete broadcasts the end-of-step marker.
func (h *Hub) TickComplete(tick uint64, robots, statics int) {
	b, err := json.Marshal(protocol.TickMsg{
		Type:    protocol.TypeTick,
		Tick:    tick,
		Robots:  robots,
		Statics: statics,
	})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(b)
}

// Join registers a session and returns the scene sync to send first plus
// the channel carrying every later event. Registration and sync are built
// under one lock so no event is lost or duplicated in between.
func (h *Hub) Join(id string) ([][]byte, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]world.ElementID, 0, len(h.scene))
	for eid := range h.scene {
		ids = append(ids, eid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	backlog := make([][]byte, 0, len(ids))
	for _, eid := range ids {
		b, err := json.Marshal(addMsg(h.scene[eid]))
		if err != nil {
			continue
		}
		backlog = append(backlog, b)
	}

	s := &session{id: id, out: make(chan []byte, sessionBuffer)}
	h.sessions[id] = s
	return backlog, s.out
}

func (h *Hub) Leave(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	if !ok {
		return
	}
	delete(h.sessions, id)
	close(s.out)
	if s.dropped > 0 {
		h.log.Printf("viz session %s dropped %d frames", id, s.dropped)
	}
}

func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) broadcastLocked(b []byte) {
	for _, s := range h.sessions {
		select {
		case s.out <- b:
		default:
			// Slow viewer: drop the frame rather than stall the loop.
			s.dropped++
		}
	}
}

func addMsg(obj world.ObjectState) protocol.AddMsg {
	return protocol.AddMsg{
		Type:      protocol.TypeAdd,
		ID:        uint64(obj.ID),
		Position:  obj.Pos.Array(),
		Color:     obj.Color.Array(),
		ModelType: string(obj.Model),
		Scale:     [3]float64{obj.Scale, obj.Scale, obj.Scale},
	}
}

func updateMsg(obj world.ObjectState) protocol.UpdateMsg {
	return protocol.UpdateMsg{
		Type:     protocol.TypeUpdate,
		ID:       uint64(obj.ID),
		Position: obj.Pos.Array(),
		Color:    obj.Color.Array(),
	}
}
