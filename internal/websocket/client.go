package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dom/learnplay/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024

	// upper bound for one heartbeat's trip through the guard
	admitTimeout = 5 * time.Second
)

// Admitter charges a heartbeat against the session behind rawToken.
type Admitter interface {
	Admit(ctx context.Context, rawToken string) (domain.AuthContext, *domain.Session, error)
}

// Client is one liveness connection bound to a single session.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	auth     domain.AuthContext
	token    string
	admitter Admitter
	log      *zap.Logger

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, auth domain.AuthContext, token string, admitter Admitter) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 16),
		auth:     auth,
		token:    token,
		admitter: admitter,
		log:      hub.log,
	}
}

func (c *Client) SessionID() string {
	return c.auth.SessionID.String()
}

// ReadPump handles inbound messages until the connection fails or the
// session is over. The write pump owns closing the connection so queued
// messages still go out.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn("[websocket.ReadPump] connection error",
					zap.String("session_id", c.SessionID()),
					zap.Error(err))
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("INVALID_MESSAGE", "Message is not valid JSON")
			continue
		}

		if !c.handleMessage(&msg) {
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
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

// handleMessage returns false once the connection should stop reading.
func (c *Client) handleMessage(msg *Message) bool {
	switch msg.Type {
	case MessageTypeHeartbeat:
		return c.heartbeat()
	default:
		c.sendError("UNKNOWN_MESSAGE", "Unsupported message type")
		return true
	}
}

func (c *Client) heartbeat() bool {
	ctx, cancel := context.WithTimeout(context.Background(), admitTimeout)
	defer cancel()

	_, session, err := c.admitter.Admit(ctx, c.token)
	if err != nil {
		reason, ok := domain.AuthReason(err)
		if !ok || reason == domain.ReasonSessionContention {
			c.log.Warn("[websocket.heartbeat] session check failed",
				zap.String("session_id", c.SessionID()),
				zap.Error(err))
			c.sendError("SESSION_CHECK_FAILED", "Could not check session, try again")
			return true
		}

		msg, _ := NewMessage(MessageTypeSessionExpired, SessionExpiredPayload{Reason: reason})
		c.Send(msg)
		c.Close()
		return false
	}

	msg, _ := NewMessage(MessageTypeSessionAlive, SessionAlivePayload{
		SessionID:        session.ID.String(),
		RemainingSeconds: session.RemainingSeconds(),
		UsedSeconds:      session.UsedActiveTime,
	})
	c.Send(msg)
	return true
}

func (c *Client) sendError(code, message string) {
	msg, _ := NewMessage(MessageTypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
	c.Send(msg)
}

// Send queues msg for the write pump. A client whose buffer is full is
// closed rather than blocking the caller.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("[websocket.Send] failed to marshal message", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.closeLocked()
	}
}

// Close stops the write pump after it flushes what is already queued.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
