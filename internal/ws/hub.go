// Package ws is the live fan-out layer: a topic-addressed hub of websocket clients.
// Delivery is best-effort and at-most-once; a disconnected client simply misses
// events and re-reads state over REST on reconnect.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/DAN1X27/messenger-service-sub000/internal/metrics"
)

type Hub struct {
	mu     sync.Mutex
	topics map[string]map[*Client]struct{}
	log    zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{topics: make(map[string]map[*Client]struct{}), log: log}
}

func (h *Hub) Subscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.topics[topic]
	if set == nil {
		set = make(map[*Client]struct{})
		h.topics[topic] = set
	}
	set[c] = struct{}{}
	c.topics[topic] = struct{}{}
}

func (h *Hub) Unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c, topic)
	delete(c.topics, topic)
}

// Remove detaches the client from every topic and closes its send channel. Safe to
// call once per client; the handler does so when a pump exits.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic := range c.topics {
		h.dropLocked(c, topic)
	}
	c.topics = make(map[string]struct{})
	c.closeSendLocked()
}

// Publish delivers payload to every client registered on topic. Slow clients are
// dropped rather than blocking the hub; within one topic, events go out in the order
// Publish was called, which the moderation layer ties to commit order.
func (h *Hub) Publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Str("topic", topic).Msg("event marshal failed")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.topics[topic] {
		select {
		case c.send <- data:
		default:
			// Slow consumer: detach it and force the socket down. Its send channel
			// stays open until Remove runs, so the read loop may still queue frames
			// while tearing down.
			for t := range c.topics {
				h.dropLocked(c, t)
			}
			c.topics = make(map[string]struct{})
			c.closeConn()
			h.log.Warn().Str("user_id", c.userID).Str("topic", topic).Msg("dropped slow client")
		}
	}
	metrics.EventsPublished.Inc()
}

// Subscribers reports the number of live connections on a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

func (h *Hub) dropLocked(c *Client, topic string) {
	if set, ok := h.topics[topic]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
}
