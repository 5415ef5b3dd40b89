package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// subscribe espera o pong: o hub processa mensagens em ordem, então a assinatura já valeu
func subscribe(t *testing.T, conn *websocket.Conn, tipID string) {
	t.Helper()
	if err := conn.WriteJSON(ClientMsg{Type: "subscribe", TipID: tipID}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(ClientMsg{Type: "ping"}); err != nil {
		t.Fatal(err)
	}
	var pong map[string]string
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&pong); err != nil || pong["type"] != "pong" {
		t.Fatalf("pong: %v %v", pong, err)
	}
}

func TestHub_BroadcastToTipAndWildcard(t *testing.T) {
	hub := NewHub(zap.NewNop(), func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	one := dial(t, srv)
	all := dial(t, srv)
	other := dial(t, srv)
	subscribe(t, one, "tip-1")
	subscribe(t, all, AllTips)
	subscribe(t, other, "tip-2")

	hub.Broadcast(Invalidation{TipID: "tip-1", Kind: "tip_settled"})

	for name, c := range map[string]*websocket.Conn{"tip": one, "wildcard": all} {
		var got Invalidation
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := c.ReadJSON(&got); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got.Type != "invalidate" || got.TipID != "tip-1" || got.Kind != "tip_settled" {
			t.Errorf("%s: unexpected %+v", name, got)
		}
	}

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var none Invalidation
	if err := other.ReadJSON(&none); err == nil {
		t.Errorf("unrelated subscriber received %+v", none)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(zap.NewNop(), func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	c := dial(t, srv)
	subscribe(t, c, "tip-1")
	if n := hub.Subscribers("tip-1"); n != 1 {
		t.Fatalf("subscribers = %d", n)
	}

	if err := c.WriteJSON(ClientMsg{Type: "unsubscribe", TipID: "tip-1"}); err != nil {
		t.Fatal(err)
	}
	subscribe(t, c, "tip-2")
	if n := hub.Subscribers("tip-1"); n != 0 {
		t.Fatalf("subscribers after unsubscribe = %d", n)
	}
}
