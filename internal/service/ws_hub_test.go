package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func wsDial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func clientCount(h *WSHub) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func waitForClients(t *testing.T, h *WSHub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if clientCount(h) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", want, clientCount(h))
}

func TestWSHub_BroadcastReachesAllClients(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	c1 := wsDial(t, srv)
	defer c1.Close()
	c2 := wsDial(t, srv)
	defer c2.Close()
	waitForClients(t, hub, 2)

	hub.Broadcast(WSMessage{
		Type:  "simulation_progress",
		RunID: "run-1",
		Done:  500,
		Total: 1000,
	})

	for i, c := range []*websocket.Conn{c1, c2} {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("client %d read failed: %v", i, err)
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("client %d got invalid json: %v", i, err)
		}
		if msg.Type != "simulation_progress" || msg.RunID != "run-1" {
			t.Errorf("client %d got unexpected message: %+v", i, msg)
		}
		if msg.Done != 500 || msg.Total != 1000 {
			t.Errorf("client %d got wrong progress: %+v", i, msg)
		}
	}
}

// A connection that dies without a close frame is pruned on broadcast
// write failure, and delivery to the surviving clients continues.
func TestWSHub_DeadClientPrunedDuringBroadcast(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	alive := wsDial(t, srv)
	defer alive.Close()
	dead := wsDial(t, srv)
	waitForClients(t, hub, 2)

	// Kill the TCP connection underneath the websocket so the server
	// only notices on write.
	dead.UnderlyingConn().Close()

	deadline := time.Now().Add(3 * time.Second)
	for clientCount(hub) > 1 && time.Now().Before(deadline) {
		hub.Broadcast(WSMessage{Type: "simulation_progress", RunID: "run-2"})
		time.Sleep(20 * time.Millisecond)
	}
	if n := clientCount(hub); n != 1 {
		t.Fatalf("dead client should be pruned, still %d clients", n)
	}

	alive.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := alive.ReadMessage(); err != nil {
		t.Fatalf("surviving client should keep receiving: %v", err)
	}
}

func TestWSHub_ClientCloseUnregisters(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	c := wsDial(t, srv)
	waitForClients(t, hub, 1)

	c.Close()
	waitForClients(t, hub, 0)
}
