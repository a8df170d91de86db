package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "ventas:canal:"

// Hub fans out chart updates to websocket clients grouped by channel.
// With Redis configured every instance relays what any instance publishes.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}

	redis  *redis.Client
	ctx    context.Context
	cancel context.CancelFunc

	maxAttempts int
	backoff     time.Duration
}

func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:     make(map[string]map[*Client]struct{}),
		redis:       redisClient,
		ctx:         ctx,
		cancel:      cancel,
		maxAttempts: 5,
		backoff:     100 * time.Millisecond,
	}
	if redisClient != nil {
		go h.runPubSub()
	}
	return h
}

func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *Hub) AddClient(canal string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[canal]; !ok {
		h.clients[canal] = make(map[*Client]struct{})
	}
	h.clients[canal][c] = struct{}{}
}

func (h *Hub) RemoveClient(canal string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.clients[canal]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.clients, canal)
		}
	}
}

// ClientCount reports how many clients listen on canal.
func (h *Hub) ClientCount(canal string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[canal])
}

// Publish sends v to every client of canal, through Redis when available.
func (h *Hub) Publish(canal string, v any) error {
	if h.redis == nil {
		h.broadcastLocal(canal, v)
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	chanName := channelPrefix + canal

	backoff := h.backoff
	for attempt := 1; attempt <= h.maxAttempts; attempt++ {
		err = h.redis.Publish(h.ctx, chanName, b).Err()
		if err == nil {
			return nil
		}

		log.Printf("hub: redis publish error canal=%s attempt=%d err=%v", canal, attempt, err)

		if attempt == h.maxAttempts {
			break
		}

		jitter := time.Duration(rand.Intn(200)) * time.Millisecond
		select {
		case <-h.ctx.Done():
			return fmt.Errorf("publish canal=%s: %w", canal, h.ctx.Err())
		case <-time.After(backoff + jitter):
		}
		backoff *= 2
	}

	log.Printf("hub: publish failed after %d attempts; falling back to local broadcast canal=%s", h.maxAttempts, canal)
	h.broadcastLocal(canal, v)
	return err
}

func (h *Hub) broadcastLocal(canal string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("hub: marshal for canal=%s: %v", canal, err)
		return
	}
	h.relay(canal, b)
}

func (h *Hub) relay(canal string, b []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[canal]))
	for c := range h.clients[canal] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.send(b)
	}
}

// runPubSub relays every ventas channel to the local clients.
func (h *Hub) runPubSub() {
	pubsub := h.redis.PSubscribe(h.ctx, channelPrefix+"*")
	log.Printf("hub: started redis psubscribe to %s*", channelPrefix)
	ch := pubsub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			_ = pubsub.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			canal, found := strings.CutPrefix(msg.Channel, channelPrefix)
			if !found || canal == "" {
				continue
			}
			h.relay(canal, []byte(msg.Payload))
		}
	}
}
