package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

type update struct {
	Producto string `json:"producto"`
	Cantidad int    `json:"cantidad"`
}

func dial(t *testing.T, srv *httptest.Server, canal string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?canal=" + canal
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, canal string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount(canal) != n {
		if time.Now().After(deadline) {
			t.Fatalf("canal %s: %d clients, want %d", canal, h.ClientCount(canal), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readUpdate(t *testing.T, conn *websocket.Conn) update {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var u update
	if err := json.Unmarshal(b, &u); err != nil {
		t.Fatalf("unmarshal %q: %v", b, err)
	}
	return u
}

func TestPublishLocal(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	pan := dial(t, srv, "pan")
	pasteles := dial(t, srv, "pasteles")
	waitClients(t, h, "pan", 1)
	waitClients(t, h, "pasteles", 1)

	want := update{Producto: "baguette", Cantidad: 3}
	if err := h.Publish("pan", want); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if diff := cmp.Diff(want, readUpdate(t, pan)); diff != "" {
		t.Fatalf("update mismatch (-want +got):\n%s", diff)
	}

	_ = pasteles.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := pasteles.ReadMessage(); err == nil {
		t.Fatal("client on another canal received the update")
	}
}

func TestDefaultCanalAndDisconnect(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	conn := dial(t, srv, "")
	waitClients(t, h, DefaultCanal, 1)

	_ = conn.Close()
	waitClients(t, h, DefaultCanal, 0)
}

func TestPublishFallsBackWhenRedisDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	h := NewHub(rdb)
	h.maxAttempts = 2
	h.backoff = time.Millisecond
	defer h.Close()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	conn := dial(t, srv, DefaultCanal)
	waitClients(t, h, DefaultCanal, 1)

	want := update{Producto: "croissant", Cantidad: 12}
	if err := h.Publish(DefaultCanal, want); err == nil {
		t.Fatal("expected publish error with redis down")
	}
	if diff := cmp.Diff(want, readUpdate(t, conn)); diff != "" {
		t.Fatalf("update mismatch (-want +got):\n%s", diff)
	}
}

func TestPublishStopsBackoffOnClose(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	h := NewHub(rdb)
	h.maxAttempts = 5
	h.backoff = 10 * time.Second

	done := make(chan error, 1)
	go func() { done <- h.Publish(DefaultCanal, update{Producto: "dona", Cantidad: 1}) }()

	time.Sleep(100 * time.Millisecond)
	h.Close()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("publish kept backing off after Close")
	}
}
