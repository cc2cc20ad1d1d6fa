package viz

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"botworld.ai/internal/protocol"
	"botworld.ai/internal/sim/world"
)

const (
	subscribeWait = 5 * time.Second
	writeWait     = 5 * time.Second
	readWait      = 60 * time.Second
)

// Server upgrades viewer connections, runs the subscribe handshake and
// bridges hub traffic onto the socket.
type Server struct {
	world *world.World
	hub   *Hub
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, hub *Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		world: w,
		hub:   hub,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: the client must send subscribe first.
		_ = conn.SetReadDeadline(time.Now().Add(subscribeWait))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub protocol.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != protocol.TypeSubscribe {
			s.reject(conn, protocol.ErrBadRequest, "expected subscribe")
			return
		}
		if sub.ProtocolVersion != protocol.Version {
			s.reject(conn, protocol.ErrProtoVersion, "unsupported protocol version")
			return
		}

		sid := uuid.NewString()
		backlog, out := s.hub.Join(sid)
		defer s.hub.Leave(sid)

		if err := s.writeJSON(conn, s.welcome(sid)); err != nil {
			return
		}
		for _, b := range backlog {
			if err := s.write(conn, b); err != nil {
				return
			}
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b, ok := <-out:
					if !ok {
						writeErr <- nil
						return
					}
					if err := s.write(conn, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: the stream is one-way, but reading keeps control
		// frames flowing and notices the peer going away.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readWait))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait so the writer does not outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) welcome(sid string) protocol.WelcomeMsg {
	cfg := s.world.Config()
	m := s.world.Metrics()
	w := protocol.WorldParams{
		Name:    cfg.Name,
		Seed:    cfg.Seed,
		Tick:    m.Tick,
		Robots:  m.Robots,
		Statics: m.Statics,
	}
	if cfg.Bounds != nil {
		w.Bounds = &protocol.BoundsParams{
			Min: cfg.Bounds.Min.Array(),
			Max: cfg.Bounds.Max.Array(),
		}
	}
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		Session:         sid,
		World:           w,
	}
}

func (s *Server) reject(conn *websocket.Conn, code, reason string) {
	b, err := json.Marshal(protocol.ErrorMsg{Type: protocol.TypeError, Code: code, Message: reason})
	if err == nil {
		_ = s.write(conn, b)
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func (s *Server) writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(conn, b)
}

func (s *Server) write(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}
