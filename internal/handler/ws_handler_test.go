package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/internal/hub"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
)

func newWSServer(t *testing.T) (*testServer, *hub.Hub, *httptest.Server) {
	t.Helper()

	s := newTestServer(t, nil)
	wsCfg := config.WebSocketConfig{
		WriteWait:      time.Second,
		PongWait:       time.Minute,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 512,
		SendBuffer:     8,
	}
	h := hub.NewHub(wsCfg)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	NewWSHandler(h, s.rooms, wsCfg).RegisterRoutes(s.router)
	srv := httptest.NewServer(s.router)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return s, h, srv
}

func dialRoom(srv *httptest.Server, roomID, deviceID string) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/rooms/" + roomID + "/ws"
	header := http.Header{}
	if deviceID != "" {
		header.Set(middleware.DeviceIDHeader, deviceID)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func TestWebSocketReceivesRoomBroadcast(t *testing.T) {
	s, h, srv := newWSServer(t)
	room := s.createRoom(t, "alice", "Trip Planning")

	conn, _, err := dialRoom(srv, room.ID, "alice")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.RoomClientCount(room.ID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := h.BroadcastToRoom(room.ID, map[string]string{"type": "message.created"}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]string
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got["type"] != "message.created" {
		t.Fatalf("got %v", got)
	}
}

func TestWebSocketRejectsUnknownRoomAndMissingDevice(t *testing.T) {
	s, _, srv := newWSServer(t)
	room := s.createRoom(t, "alice", "Trip Planning")

	tests := []struct {
		name     string
		roomID   string
		deviceID string
		want     int
	}{
		{"unknown room", "does-not-exist", "alice", http.StatusNotFound},
		{"missing device", room.ID, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := dialRoom(srv, tt.roomID, tt.deviceID)
			if err == nil {
				conn.Close()
				t.Fatal("expected dial to fail")
			}
			if resp == nil || resp.StatusCode != tt.want {
				t.Fatalf("response = %v, want status %d", resp, tt.want)
			}
		})
	}
}

func TestWebSocketAnswersPing(t *testing.T) {
	s, _, srv := newWSServer(t)
	room := s.createRoom(t, "alice", "Trip Planning")

	conn, _, err := dialRoom(srv, room.ID, "alice")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]string
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got["type"] != "pong" {
		t.Fatalf("expected pong, got %v", got)
	}
}
