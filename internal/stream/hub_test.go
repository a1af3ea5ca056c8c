package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmeshcher/smartpark-system/internal/model"
	"github.com/mmeshcher/smartpark-system/internal/service"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial hub: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return event
}

func TestHub_BroadcastZones(t *testing.T) {
	hub := NewHub(nil)
	t.Cleanup(func() { hub.Close() })

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn := dialHub(t, srv)

	// Подключение регистрируется асинхронно.
	time.Sleep(50 * time.Millisecond)

	hub.BroadcastZones([]model.Spot{
		{ID: 1, Name: "Central Plaza", Free: 10, Status: model.SpotStatusAvailable},
	})

	event := readEvent(t, conn)
	if event.Type != "zones" {
		t.Fatalf("event type = %q, want zones", event.Type)
	}
	if len(event.Zones) != 1 || event.Zones[0].Name != "Central Plaza" {
		t.Fatalf("unexpected zones payload: %+v", event.Zones)
	}
}

func TestHub_BroadcastFlow(t *testing.T) {
	hub := NewHub(nil)
	t.Cleanup(func() { hub.Close() })

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn := dialHub(t, srv)
	time.Sleep(50 * time.Millisecond)

	hub.BroadcastFlow(service.FlowSnapshot{State: model.FlowSearching})

	event := readEvent(t, conn)
	if event.Type != "flow" {
		t.Fatalf("event type = %q, want flow", event.Type)
	}
	if event.Flow == nil || event.Flow.State != model.FlowSearching {
		t.Fatalf("unexpected flow payload: %+v", event.Flow)
	}
}

func TestHub_MultipleClientsReceiveBroadcast(t *testing.T) {
	hub := NewHub(nil)
	t.Cleanup(func() { hub.Close() })

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	first := dialHub(t, srv)
	second := dialHub(t, srv)
	time.Sleep(50 * time.Millisecond)

	hub.BroadcastZones([]model.Spot{{ID: 2, Name: "North Street Parking"}})

	for _, conn := range []*websocket.Conn{first, second} {
		event := readEvent(t, conn)
		if event.Type != "zones" {
			t.Fatalf("event type = %q, want zones", event.Type)
		}
	}
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub(nil)

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn := dialHub(t, srv)
	time.Sleep(50 * time.Millisecond)

	if err := hub.Close(); err != nil {
		t.Fatalf("close hub: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection to be closed")
	}
}
