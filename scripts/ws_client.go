// Package main runs a demo WebSocket client for Santa tracker events.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	payload := map[string]any{
		"query":     "subscription($types: [String!]) { santaEvents(types: $types) }",
		"variables": map[string]any{"types": []string{"santa.arrived", "milestone.reached", "achievement.unlocked"}},
	}
	pl, _ := json.Marshal(payload)
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			if m.Type == "ping" {
				_ = c.WriteJSON(wsMessage{Type: "pong"})
				continue
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Force a couple of hops instead of waiting for the timer
	time.Sleep(500 * time.Millisecond)
	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodPost, base+"/v1/tracker/advance", nil)
		req.Header.Set("X-Role", "admin")
		if tok := os.Getenv("TOKEN"); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Fatal(err)
		}
		_ = resp.Body.Close()
		log.Printf("advance -> %d", resp.StatusCode)
	}

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
