package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abelzeko/awlr-monitor/internal/entities"
	"github.com/abelzeko/awlr-monitor/internal/monitoring"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

func testSnapshot(event monitoring.Event, level float64) monitoring.Snapshot {
	return monitoring.Snapshot{
		Event:      event,
		Readings:   []entities.Reading{{ID: 0, Level: level, Status: entities.StatusSafe}},
		Thresholds: entities.DefaultThresholds(),
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Failed to decode %s: %v", data, err)
	}
	return env
}

func TestHubBroadcastsSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	first, err := EncodeSnapshot(testSnapshot(monitoring.EventState, 0.8))
	if err != nil {
		t.Fatalf("Failed to encode snapshot: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		client := NewClient(hub, conn, first)
		if !hub.RegisterClient(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	env := readEnvelope(t, conn)
	if string(env["type"]) != `"snapshot"` {
		t.Errorf("Expected snapshot envelope, got %s", env["type"])
	}
	if !strings.Contains(string(env["payload"]), `"event":"state"`) {
		t.Errorf("Expected the initial state snapshot, got %s", env["payload"])
	}

	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Client was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.BroadcastSnapshot(testSnapshot(monitoring.EventTick, 1.234))

	env = readEnvelope(t, conn)
	payload := string(env["payload"])
	if !strings.Contains(payload, `"event":"tick"`) || !strings.Contains(payload, `"level":1.234`) {
		t.Errorf("Unexpected broadcast payload: %s", payload)
	}

	cancel()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the connection to close when the hub stops")
	}
}

func TestBroadcastWithoutClientsDoesNotBlock(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.BroadcastSnapshot(testSnapshot(monitoring.EventTick, 1))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("BroadcastSnapshot blocked without a running hub")
	}
}
