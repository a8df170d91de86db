package ws

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultCanal is used when the client does not pick a channel.
const DefaultCanal = "ventas"

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *Client) send(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Printf("ws: write to %s: %v", c.conn.RemoteAddr(), err)
	}
}

// ServeWS upgrades the request and keeps the client registered until it
// disconnects. Clients only receive; anything they send is discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	canal := r.URL.Query().Get("canal")
	if canal == "" {
		canal = DefaultCanal
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client
		log.Printf("ws: upgrade failed canal=%s: %v", canal, err)
		return
	}

	log.Printf("ws: connected canal=%s remote=%s", canal, r.RemoteAddr)
	client := &Client{conn: conn}
	h.AddClient(canal, client)

	go func() {
		defer func() {
			h.RemoveClient(canal, client)
			_ = conn.Close()
			log.Printf("ws: disconnected canal=%s remote=%s", canal, r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
