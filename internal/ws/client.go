package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/DAN1X27/messenger-service-sub000/internal/metrics"
	"github.com/DAN1X27/messenger-service-sub000/internal/model"
	"github.com/DAN1X27/messenger-service-sub000/internal/repository"
	"github.com/DAN1X27/messenger-service-sub000/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 64 * 1024
)

type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	topics map[string]struct{}
	userID string
	token  string
	closed bool
}

// closeSendLocked is called with the hub mutex held. Only Remove closes the send
// channel; the pumps must both be done with it by then.
func (c *Client) closeSendLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// closeConn aborts the socket so both pumps exit and the handler runs Remove.
func (c *Client) closeConn() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

type inboundFrame struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

// Presence is notified when a user's first connection opens and their last one
// closes. May be nil.
type Presence interface {
	SetOnline(ctx context.Context, userID string, online bool) error
}

type Handler struct {
	hub      *Hub
	sessions *session.Manager
	queries  *repository.Queries
	presence Presence
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, sessions *session.Manager, queries *repository.Queries, presence Presence, log zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		sessions: sessions,
		queries:  queries,
		presence: presence,
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// ServeHTTP upgrades the connection and authenticates it. An invalid token does not
// refuse the upgrade: the socket opens, receives one auth_error frame, and is closed
// without ever being subscribed to anything.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	identity, err := h.sessions.Validate(r.Context(), token)
	if err != nil {
		frame, _ := json.Marshal(map[string]string{"type": "auth_error", "error": "invalid_token"})
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, frame)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"))
		_ = conn.Close()
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan []byte, 256),
		topics: make(map[string]struct{}),
		userID: identity.UserID,
		token:  token,
	}

	personalTopic := model.Topic(model.KindUser, client.userID)
	first := h.hub.Subscribers(personalTopic) == 0

	h.subscribeOwned(r.Context(), client)
	metrics.WsConnections.Inc()
	h.log.Debug().Str("user_id", client.userID).Msg("ws connected")
	if first && h.presence != nil {
		if err := h.presence.SetOnline(r.Context(), client.userID, true); err != nil {
			h.log.Warn().Err(err).Str("user_id", client.userID).Msg("presence update failed")
		}
	}

	go client.writePump()
	h.readPump(client)

	h.hub.Remove(client)
	metrics.WsConnections.Dec()
	h.log.Debug().Str("user_id", client.userID).Msg("ws disconnected")
	if h.presence != nil && h.hub.Subscribers(personalTopic) == 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := h.presence.SetOnline(ctx, client.userID, false); err != nil {
			h.log.Warn().Err(err).Str("user_id", client.userID).Msg("presence update failed")
		}
		cancel()
	}
}

// subscribeOwned registers the client on its personal topic and on every entity it
// currently belongs to.
func (h *Handler) subscribeOwned(ctx context.Context, c *Client) {
	h.hub.Subscribe(c, model.Topic(model.KindUser, c.userID))

	if chats, err := h.queries.ListChatsForUser(ctx, c.userID); err == nil {
		for _, chat := range chats {
			h.hub.Subscribe(c, model.Topic(model.KindChat, chat.ID))
		}
	}
	for _, kind := range []model.EntityKind{model.KindChannel, model.KindGroup} {
		ids, err := h.queries.ListEntityIDsForUser(ctx, kind, c.userID)
		if err != nil {
			continue
		}
		for _, id := range ids {
			h.hub.Subscribe(c, model.Topic(kind, id))
		}
	}
}

func (h *Handler) readPump(c *Client) {
	defer func() { _ = c.conn.Close() }()
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		// Revocation takes effect on the next authenticated action: every inbound
		// frame re-validates the token the connection was opened with.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err = h.sessions.Validate(ctx, c.token)
		cancel()
		if err != nil {
			frame, _ := json.Marshal(map[string]string{"type": "auth_error", "error": "invalid_token"})
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.TextMessage, frame)
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch frame.Action {
		case "subscribe":
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			allowed := h.entitled(ctx, c.userID, frame.Topic)
			cancel()
			if allowed {
				h.hub.Subscribe(c, frame.Topic)
			}
		case "unsubscribe":
			h.hub.Unsubscribe(c, frame.Topic)
		case "ping":
			if pong, err := json.Marshal(map[string]string{"type": "pong"}); err == nil {
				select {
				case c.send <- pong:
				default:
				}
			}
		}
	}
}

// entitled checks whether the user may listen on a topic: their own personal topic, a
// chat they participate in, or a channel/group they are a member of.
func (h *Handler) entitled(ctx context.Context, userID, topic string) bool {
	kind, id, ok := splitTopic(topic)
	if !ok {
		return false
	}
	switch kind {
	case model.KindUser:
		return id == userID
	case model.KindChat:
		chat, err := h.queries.GetChatByID(ctx, id)
		if err != nil {
			return false
		}
		return chat.UserA == userID || chat.UserB == userID
	case model.KindChannel, model.KindGroup:
		_, err := h.queries.GetMembership(ctx, kind, id, userID)
		return err == nil
	default:
		return false
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func splitTopic(topic string) (model.EntityKind, string, bool) {
	parts := strings.SplitN(topic, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return model.EntityKind(parts[0]), parts[1], true
}

// bearerToken pulls the credential from the Authorization header or, for browser
// websocket clients that cannot set headers, the token query parameter.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return r.URL.Query().Get("token")
}
