// Package realtime implements the websocket fan-out layer. Clients attach
// to named channels (user_<id>, provider_<id>, booking_<id>) and receive
// every event published to them. Delivery is best effort: a subscriber
// that cannot keep up has its connection dropped rather than backing up
// the publisher.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ibndev/citystaff-backend/internal/logger"
	"github.com/ibndev/citystaff-backend/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10
	sendBuffer     = 32
)

// Role of a connected client.
type Role string

const (
	RoleUser     Role = "user"
	RoleProvider Role = "provider"
)

func UserChannel(id string) string     { return "user_" + id }
func ProviderChannel(id string) string { return "provider_" + id }
func BookingChannel(id string) string  { return "booking_" + id }

// Envelope is the wire frame pushed to subscribers.
type Envelope struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Inbound is a frame received from a client.
type Inbound struct {
	Action  string          `json:"action"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// MessageHandler receives inbound frames that are not channel management
// (subscribe/unsubscribe), e.g. provider location updates.
type MessageHandler func(c *Client, msg Inbound)

type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Client]struct{}

	onMessage MessageHandler
}

func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[*Client]struct{})}
}

// SetMessageHandler installs the inbound-frame callback. Call once during
// wiring, before any client connects.
func (h *Hub) SetMessageHandler(fn MessageHandler) { h.onMessage = fn }

// Publish sends an event to every subscriber of the channel. Never blocks.
func (h *Hub) Publish(channelKey, event string, payload any) {
	env := Envelope{Channel: channelKey, Event: event, Payload: payload}

	h.mu.RLock()
	subs := make([]*Client, 0, len(h.channels[channelKey]))
	for c := range h.channels[channelKey] {
		subs = append(subs, c)
	}
	h.mu.RUnlock()

	for _, c := range subs {
		select {
		case c.send <- env:
		default:
			// Slow consumer. Detach it from every channel before closing
			// send, otherwise a later Publish would write to a closed
			// channel; the write pump tears the connection down.
			logger.Warn("realtime subscriber too slow, dropping", "channel", channelKey, "role", c.Role, "id", c.ID)
			h.drop(c)
			c.closeOnce.Do(func() { close(c.send) })
		}
	}
}

func (h *Hub) subscribe(c *Client, channelKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.channels[channelKey] == nil {
		h.channels[channelKey] = make(map[*Client]struct{})
	}
	h.channels[channelKey][c] = struct{}{}
	c.channels[channelKey] = struct{}{}
}

func (h *Hub) unsubscribe(c *Client, channelKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(c, channelKey)
}

func (h *Hub) detachLocked(c *Client, channelKey string) {
	if subs, ok := h.channels[channelKey]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.channels, channelKey)
		}
	}
	delete(c.channels, channelKey)
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	for key := range c.channels {
		h.detachLocked(c, key)
	}
	h.mu.Unlock()
}

// Client is one websocket connection with an authenticated identity.
type Client struct {
	Role Role
	ID   string

	hub  *Hub
	conn *websocket.Conn
	send chan Envelope
	// channels tracks this client's subscriptions for teardown. Guarded
	// by the hub mutex, same as the hub-side registry.
	channels  map[string]struct{}
	closeOnce sync.Once
}

// Attach registers an authenticated connection with the hub, subscribes
// it to its own identity channel and starts the pumps. Blocks until the
// read pump exits.
func (h *Hub) Attach(conn *websocket.Conn, role Role, id string) {
	c := &Client{
		Role:     role,
		ID:       id,
		hub:      h,
		conn:     conn,
		send:     make(chan Envelope, sendBuffer),
		channels: make(map[string]struct{}),
	}
	switch role {
	case RoleProvider:
		h.subscribe(c, ProviderChannel(id))
	default:
		h.subscribe(c, UserChannel(id))
	}
	observability.RealtimeConnections.Inc()
	logger.Info("realtime client connected", "role", role, "id", id)

	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.closeOnce.Do(func() { close(c.send) })
		c.conn.Close()
		observability.RealtimeConnections.Dec()
		logger.Info("realtime client disconnected", "role", c.Role, "id", c.ID)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("realtime read error", "role", c.Role, "id", c.ID, "error", err)
			}
			return
		}
		switch msg.Action {
		case "subscribe", "join_booking":
			if key := resolveChannel(msg); c.mayJoin(key) {
				c.hub.subscribe(c, key)
			}
		case "unsubscribe", "leave_booking":
			if key := resolveChannel(msg); key != "" {
				c.hub.unsubscribe(c, key)
			}
		default:
			if c.hub.onMessage != nil {
				c.hub.onMessage(c, msg)
			}
		}
	}
}

// mayJoin limits ad-hoc subscriptions to booking channels; identity
// channels are assigned at attach time and never joinable by request.
func (c *Client) mayJoin(channelKey string) bool {
	return len(channelKey) > 8 && channelKey[:8] == "booking_"
}

// resolveChannel accepts either an explicit channel key or a frame whose
// data carries a booking_id, the shape mobile clients send for
// join_booking/leave_booking.
func resolveChannel(msg Inbound) string {
	if msg.Channel != "" {
		return msg.Channel
	}
	var ref struct {
		BookingID string `json:"booking_id"`
	}
	if err := json.Unmarshal(msg.Data, &ref); err != nil || ref.BookingID == "" {
		return ""
	}
	return BookingChannel(ref.BookingID)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
