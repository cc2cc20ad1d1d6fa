package viz

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"botworld.ai/internal/protocol"
	"botworld.ai/internal/sim/world"
)

func dialTestServer(t *testing.T) (*websocket.Conn, *world.World, func()) {
	t.Helper()
	w, err := world.New(world.WorldConfig{Name: "viz-test", Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	hub := NewHub(nil)
	w.SetEngine(hub)
	if _, err := w.AddRobot(world.RobotSpec{}); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(NewServer(w, hub, nil).WSHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	cleanup := func() {
		conn.Close()
		srv.Close()
	}
	return conn, w, cleanup
}

func readMsg(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return b
}

func TestHandshakeAndSceneSync(t *testing.T) {
	conn, _, cleanup := dialTestServer(t)
	defer cleanup()

	err := conn.WriteJSON(protocol.SubscribeMsg{
		Type:            protocol.TypeSubscribe,
		ProtocolVersion: protocol.Version,
	})
	if err != nil {
		t.Fatal(err)
	}

	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(readMsg(t, conn), &welcome); err != nil {
		t.Fatal(err)
	}
	if welcome.Type != protocol.TypeWelcome || welcome.ProtocolVersion != protocol.Version {
		t.Fatalf("welcome = %+v", welcome)
	}
	if welcome.Session == "" {
		t.Fatal("welcome carries no session id")
	}
	if welcome.World.Name != "viz-test" || welcome.World.Seed != 1 {
		t.Fatalf("world params = %+v", welcome.World)
	}

	// The robot added before the dial arrives as scene sync.
	var add protocol.AddMsg
	if err := json.Unmarshal(readMsg(t, conn), &add); err != nil {
		t.Fatal(err)
	}
	if add.Type != protocol.TypeAdd || add.ID != 1 || add.ModelType != "cube" {
		t.Fatalf("scene sync add = %+v", add)
	}
}

func TestHandshakeRejectsWrongVersion(t *testing.T) {
	conn, _, cleanup := dialTestServer(t)
	defer cleanup()

	err := conn.WriteJSON(protocol.SubscribeMsg{
		Type:            protocol.TypeSubscribe,
		ProtocolVersion: "9.9",
	})
	if err != nil {
		t.Fatal(err)
	}

	var e protocol.ErrorMsg
	if err := json.Unmarshal(readMsg(t, conn), &e); err != nil {
		t.Fatal(err)
	}
	if e.Type != protocol.TypeError || e.Code != protocol.ErrProtoVersion {
		t.Fatalf("error = %+v", e)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("connection should close after version rejection")
	}
}

func TestHandshakeRejectsNonSubscribe(t *testing.T) {
	conn, _, cleanup := dialTestServer(t)
	defer cleanup()

	if err := conn.WriteJSON(map[string]string{"type": "hello"}); err != nil {
		t.Fatal(err)
	}

	var e protocol.ErrorMsg
	if err := json.Unmarshal(readMsg(t, conn), &e); err != nil {
		t.Fatal(err)
	}
	if e.Code != protocol.ErrBadRequest {
		t.Fatalf("error code = %q, want %q", e.Code, protocol.ErrBadRequest)
	}
}

func TestLiveEventsReachSubscriber(t *testing.T) {
	conn, w, cleanup := dialTestServer(t)
	defer cleanup()

	err := conn.WriteJSON(protocol.SubscribeMsg{
		Type:            protocol.TypeSubscribe,
		ProtocolVersion: protocol.Version,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Welcome plus one scene add. The session is registered before the
	// welcome is written, so anything published after this is streamed.
	readMsg(t, conn)
	readMsg(t, conn)

	if _, err := w.AddStatic(world.StaticSpec{Pos: world.Vec3{X: 3}}); err != nil {
		t.Fatal(err)
	}

	var add protocol.AddMsg
	if err := json.Unmarshal(readMsg(t, conn), &add); err != nil {
		t.Fatal(err)
	}
	if add.Type != protocol.TypeAdd || add.ModelType != "sphere" {
		t.Fatalf("live add = %+v", add)
	}
}
