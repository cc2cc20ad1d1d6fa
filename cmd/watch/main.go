package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"botworld.ai/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		every = flag.Uint64("every", 10, "print every nth tick (1 prints all)")
		scene = flag.Bool("scene", false, "also print add/update/remove scene messages")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := protocol.SubscribeMsg{
		Type:            protocol.TypeSubscribe,
		ProtocolVersion: protocol.Version,
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send subscribe: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s world=%s seed=%d tick=%d robots=%d statics=%d",
				w.Session, w.World.Name, w.World.Seed, w.World.Tick, w.World.Robots, w.World.Statics)

		case protocol.TypeTick:
			var t protocol.TickMsg
			if err := json.Unmarshal(msg, &t); err != nil {
				continue
			}
			if *every != 0 && t.Tick%*every == 0 {
				logger.Printf("tick=%d robots=%d statics=%d", t.Tick, t.Robots, t.Statics)
			}

		case protocol.TypeAdd, protocol.TypeUpdate, protocol.TypeRemove:
			if *scene {
				logger.Printf("%s", msg)
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR code=%s message=%s", e.Code, e.Message)
		}
	}
}
