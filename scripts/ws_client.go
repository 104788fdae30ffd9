// Package main runs a demo WebSocket client for solve progress events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
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

	// Create a random scenario
	scBody := []byte(`{"generate":{"numPoints":8,"numVehicles":3,"seed":42,"name":"ws demo"}}`)
	scReq, _ := http.NewRequest(http.MethodPost, base+"/v1/scenarios", bytes.NewReader(scBody))
	scReq.Header.Set("Content-Type", "application/json")
	scReq.Header.Set("X-Tenant-Id", "t_demo")
	scReq.Header.Set("X-Role", "admin")
	scResp, err := http.DefaultClient.Do(scReq)
	if err != nil {
		log.Fatal(err)
	}
	var scenario struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(scResp.Body).Decode(&scenario); err != nil {
		log.Fatal(err)
	}
	_ = scResp.Body.Close()
	log.Printf("Scenario ID: %s", scenario.ID)

	// Pre-name the plan so we can follow its progress stream
	planID := uuid.New().String()

	// Connect WS and subscribe before starting the solve
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/solves/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	pl, _ := json.Marshal(map[string]any{"planId": planID})
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
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Kick off the solve
	time.Sleep(200 * time.Millisecond)
	body := []byte(fmt.Sprintf(`{"scenarioId":%q,"planId":%q,"params":{"generations":50,"seed":7}}`, scenario.ID, planID))
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/solve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var plan struct {
		ID       string  `json:"id"`
		Distance float64 `json:"distance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		log.Fatal(err)
	}
	log.Printf("Plan ID: %s distance=%.2f", plan.ID, plan.Distance)

	// Wait briefly to drain remaining messages
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
