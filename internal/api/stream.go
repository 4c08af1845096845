package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
)

// StreamType identifies the kind of server-pushed event.
type StreamType string

const (
	StreamSessionCreated     StreamType = "session_created"
	StreamSessionUpdated     StreamType = "session_updated"
	StreamSessionDeleted     StreamType = "session_deleted"
	StreamSessionsInvalidate StreamType = "sessions_invalidate"
	StreamBuddiesInvalidate  StreamType = "buddies_invalidate"
	StreamPartnerAccepted    StreamType = "partner_accepted"
	StreamPartnerRejected    StreamType = "partner_rejected"
	StreamNotification       StreamType = "notification"
	StreamError              StreamType = "error"
)

// StreamMessage is the envelope for all server-pushed events.
type StreamMessage struct {
	Type    StreamType      `json:"type"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

// StreamClient manages the WebSocket connection that feeds server-side
// entity changes into the dashboard.
type StreamClient struct {
	url   string
	token string

	mu      sync.Mutex
	writeMu sync.Mutex // serialises all conn writes (ping, resync, auth)
	conn    *websocket.Conn
	seq     uint64
	pingCtx context.CancelFunc // cancels the active ping goroutine
}

// NewStreamClient creates a client that connects to the given WebSocket URL.
func NewStreamClient(url, token string) *StreamClient {
	return &StreamClient{url: url, token: token}
}

// --- Bubble Tea messages ---

// StreamConnectedMsg is sent when the WebSocket connects.
type StreamConnectedMsg struct{}

// StreamDisconnectedMsg is sent when the connection drops.
type StreamDisconnectedMsg struct{ Err error }

// SessionCreatedMsg delivers a new session from the stream.
type SessionCreatedMsg struct{ Session Session }

// SessionUpdatedMsg delivers a partial session update.
type SessionUpdatedMsg struct{ Patch SessionPatch }

// SessionDeletedMsg reports a removed session.
type SessionDeletedMsg struct{ ID string }

// SessionsInvalidateMsg asks for a full session re-fetch.
type SessionsInvalidateMsg struct{}

// BuddiesInvalidateMsg asks for a partner re-fetch.
type BuddiesInvalidateMsg struct{}

// PartnerAcceptedMsg reports an accepted partner request.
type PartnerAcceptedMsg struct{ AcceptedBy string }

// PartnerRejectedMsg reports a rejected partner request.
type PartnerRejectedMsg struct{ RejectedBy string }

// NotificationMsg delivers a server-pushed notification.
type NotificationMsg struct{ Notification Notification }

// StreamErrorMsg wraps a server-side error.
type StreamErrorMsg struct{ Raw json.RawMessage }

// Listen returns a Bubble Tea command that connects and reports
// StreamConnectedMsg. It reconnects automatically with backoff.
func (c *StreamClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
			if err != nil {
				log.Printf("stream dial error: %v (retry in %v)", err, delay)
				time.Sleep(delay)
				delay = min(delay*2, reconnectMaxDelay)
				continue
			}

			// Authenticate if token is set. No write mutex needed here
			// because the connection isn't shared yet.
			if c.token != "" {
				auth := map[string]string{"type": "auth", "token": c.token}
				if err := conn.WriteJSON(auth); err != nil {
					conn.Close()
					continue
				}
			}

			// Cancel any previous ping goroutine.
			c.mu.Lock()
			if c.pingCtx != nil {
				c.pingCtx()
			}
			pingCtx, pingCancel := context.WithCancel(ctx)
			c.conn = conn
			c.seq = 0
			c.pingCtx = pingCancel
			c.mu.Unlock()

			go c.pingLoop(pingCtx, conn)

			return StreamConnectedMsg{}
		}
	}
}

// ReadLoop returns a Bubble Tea command that reads the next recognized
// event from the connection. Start it after StreamConnectedMsg and restart
// it after every delivered message.
func (c *StreamClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return StreamDisconnectedMsg{Err: fmt.Errorf("no connection")}
		}

		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongTimeout))
			return nil
		})
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.mu.Lock()
				if c.conn == conn {
					c.conn = nil
				}
				c.mu.Unlock()
				conn.Close()
				return StreamDisconnectedMsg{Err: err}
			}

			var msg StreamMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}

			c.mu.Lock()
			c.seq = msg.Seq
			c.mu.Unlock()

			teaMsg := dispatch(msg)
			if teaMsg != nil {
				return teaMsg
			}
		}
	}
}

// pingLoop sends periodic pings on the given connection. It exits when the
// context is cancelled or the connection changes.
func (c *StreamClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			cc := c.conn
			c.mu.Unlock()
			if cc != conn {
				return
			}
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Resync asks the server to replay the current snapshot as events.
func (c *StreamClient) Resync() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(map[string]string{"type": "resync"})
}

// Seq returns the last seen sequence number.
func (c *StreamClient) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

func dispatch(msg StreamMessage) tea.Msg {
	switch msg.Type {
	case StreamSessionCreated:
		var s Session
		if json.Unmarshal(msg.Payload, &s) == nil {
			return SessionCreatedMsg{Session: s}
		}
	case StreamSessionUpdated:
		var p SessionPatch
		if json.Unmarshal(msg.Payload, &p) == nil && p.ID != "" {
			return SessionUpdatedMsg{Patch: p}
		}
	case StreamSessionDeleted:
		var p struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(msg.Payload, &p) == nil && p.ID != "" {
			return SessionDeletedMsg{ID: p.ID}
		}
	case StreamSessionsInvalidate:
		return SessionsInvalidateMsg{}
	case StreamBuddiesInvalidate:
		return BuddiesInvalidateMsg{}
	case StreamPartnerAccepted:
		var p struct {
			AcceptedBy string `json:"acceptedBy"`
		}
		if json.Unmarshal(msg.Payload, &p) == nil {
			return PartnerAcceptedMsg{AcceptedBy: p.AcceptedBy}
		}
	case StreamPartnerRejected:
		var p struct {
			RejectedBy string `json:"rejectedBy"`
		}
		if json.Unmarshal(msg.Payload, &p) == nil {
			return PartnerRejectedMsg{RejectedBy: p.RejectedBy}
		}
	case StreamNotification:
		var n Notification
		if json.Unmarshal(msg.Payload, &n) == nil {
			return NotificationMsg{Notification: n}
		}
	case StreamError:
		return StreamErrorMsg{Raw: msg.Payload}
	}
	return nil
}
