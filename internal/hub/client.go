package hub

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"MindEase/internal/consult"
	"MindEase/internal/event"
	"MindEase/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// tuning parameters
	writeWait       = 10 * time.Second       // time allowed to write a message to the peer
	pongWait        = 20 * time.Second       // time allowed to read the next pong message from the peer
	pingInterval    = (pongWait * 9) / 10    // send pings to peer with this period
	maxMessageSize  = 64 * 1024              // max inbound message size (64KB)
	sendBufSize     = 256                    // per-connection outbound buffer size
	workerPoolSize  = 16                     // number of workers to process inbound messages
	sendTimeout     = 2 * time.Second        // timeout for enqueuing outbound messages
	registerTimeout = 5 * time.Second        // timeout for client registration
	inboundTimeout  = 500 * time.Millisecond // timeout for sending to inbound channel
	opTimeout       = 10 * time.Second       // per-operation store deadline
)

// Client is one connected participant: a websocket connection plus that
// participant's consultation controller. The client itself is the
// controller's sink, so merger and presence updates flow straight onto
// the egress channel.
type Client struct {
	ID         string
	user       model.Participant
	conn       *websocket.Conn
	hub        *Hub
	controller *consult.Controller
	egress     chan event.WsEvent
	log        *zap.Logger

	cancel         context.CancelFunc
	ctx            context.Context
	once           sync.Once
	connClosed     chan struct{}
	connClosedOnce sync.Once

	closedMu sync.RWMutex
	closed   bool
}

// RegisterClient creates a client for a freshly upgraded connection and
// starts its read/write pumps.
func RegisterClient(user model.Participant, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	client := &Client{
		ID:         uuid.New().String(),
		user:       user,
		conn:       conn,
		hub:        h,
		egress:     make(chan event.WsEvent, sendBufSize),
		log:        h.log,
		cancel:     cancel,
		ctx:        ctx,
		connClosed: make(chan struct{}),
	}
	client.controller = h.newController(user, client)

	select {
	case h.register <- client:
		go client.readMessages()
		go client.writeMessages()
		return client
	case <-time.After(registerTimeout):
		h.log.Warn("failed to register client: timeout", zap.String("client", client.ID))
		client.controller.Close()
		cancel()
		conn.Close()
		return nil
	}
}

// -----------------------------------------------------------------
// Controller sink (consult.Sink)
// -----------------------------------------------------------------

// MessagesChanged pushes the freshly applied full message view. Every
// applied emission is pushed; the client scrolls to latest on each.
func (c *Client) MessagesChanged(msgs []model.Message) {
	payload, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	c.SafeSend(event.WsEvent{Event: event.EventServerMessages, Payload: payload}, sendTimeout)
}

// TypingChanged pushes the remote participant's presence flag as-is.
func (c *Client) TypingChanged(typing bool) {
	payload, _ := json.Marshal(event.TypingPayload{Typing: typing})
	c.SafeSend(event.WsEvent{Event: event.EventServerTyping, Payload: payload}, sendTimeout)
}

// -----------------------------------------------------------------
// Pumps
// -----------------------------------------------------------------

func (c *Client) readMessages() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-time.After(registerTimeout):
			c.log.Warn("failed to unregister client: timeout", zap.String("client", c.ID))
		}
		c.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var ev event.WsEvent
			if err := c.conn.ReadJSON(&ev); err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					c.log.Debug("client disconnected", zap.String("client", c.ID))
					return
				}
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					c.log.Debug("client timed out", zap.String("client", c.ID))
					return
				}
				c.log.Debug("client read error", zap.String("client", c.ID), zap.Error(err))
				return
			}

			// Non-blocking handoff so a slow store never stalls the reader.
			select {
			case c.hub.inbound <- inboundMessage{client: c, event: ev}:
			case <-time.After(inboundTimeout):
				c.log.Warn("inbound queue full, dropping client", zap.String("client", c.ID))
				c.cancel()
				c.conn.Close()
			case <-c.ctx.Done():
				return
			}
		}
	}
}

func (c *Client) writeMessages() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
		c.connClosedOnce.Do(func() { close(c.connClosed) })
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-c.egress:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.log.Debug("client write error", zap.String("client", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// -----------------------------------------------------------------
// Sending
// -----------------------------------------------------------------

// SafeSend enqueues an event, reporting false when the client is gone
// or the egress stays full past the timeout.
func (c *Client) SafeSend(ev event.WsEvent, timeout time.Duration) bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	if c.closed {
		return false
	}

	select {
	case <-c.ctx.Done():
		return false
	case c.egress <- ev:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (c *Client) sendPayload(eventName string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	c.SafeSend(event.WsEvent{Event: eventName, Payload: raw}, sendTimeout)
}

func (c *Client) sendError(code, message string) {
	c.sendPayload(event.EventServerError, event.ErrorPayload{Code: code, Message: message})
}

func (c *Client) Close() {
	c.once.Do(func() {
		c.controller.Close()
		c.cancel()

		c.closedMu.Lock()
		c.closed = true
		close(c.egress)
		c.closedMu.Unlock()

		// Wait for the write pump to close the conn, or force it.
		go func() {
			select {
			case <-c.connClosed:
			case <-time.After(5 * time.Second):
				_ = c.conn.Close()
			}
		}()
	})
}
