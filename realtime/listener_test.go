package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/totegamma/chatkit/member"
)

func TestListenerRun(t *testing.T) {
	tokens := make(chan string, 1)
	pings := make(chan string, 1)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		var auth authenticatePacket
		if err := ws.ReadJSON(&auth); err != nil {
			return
		}
		tokens <- auth.Token

		ws.WriteJSON(packet{Type: TypeAuthenticated})
		ws.WriteMessage(websocket.TextMessage, []byte(`{"type": "ServerMemberJoin", "id": "S1", "user": "U1"}`))

		var ping pingPacket
		if err := ws.ReadJSON(&ping); err != nil {
			return
		}
		pings <- ping.Type

		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		ws.ReadMessage()
	}))
	defer srv.Close()

	s := newSession()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	l := NewListener(url, "secret", s.handler(), 20*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.Run(ctx); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if token := <-tokens; token != "secret" {
		t.Fatalf("expected token secret got %q", token)
	}
	if ping := <-pings; ping != TypePing {
		t.Fatalf("expected a heartbeat got %q", ping)
	}
	if !s.members.Has(member.Key{Server: "S1", User: "U1"}) {
		t.Fatalf("expected the joined member to be cached")
	}
}

func TestListenerStopsOnCancel(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	s := newSession()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	l := NewListener(url, "secret", s.handler(), time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("listener did not stop")
	}
}

func TestListenerAuthenticationFailure(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		ws.ReadMessage()
		ws.WriteMessage(websocket.TextMessage, []byte(`{"type": "Error", "error": "InvalidSession"}`))
		ws.ReadMessage()
	}))
	defer srv.Close()

	s := newSession()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	l := NewListener(url, "bad", s.handler(), time.Hour, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.Run(ctx); err == nil || !strings.Contains(err.Error(), "InvalidSession") {
		t.Fatalf("expected authentication failure got %v", err)
	}
}
