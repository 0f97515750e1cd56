package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"MindEase/internal/capture"
	"MindEase/internal/consult"
	"MindEase/internal/event"
	"MindEase/internal/model"
	"MindEase/internal/notify"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type inboundMessage struct {
	event  event.WsEvent
	client *Client
}

// ControllerFactory builds one participant's consultation controller,
// with the given sink receiving its state-change pushes.
type ControllerFactory func(user model.Participant, sink consult.Sink) *consult.Controller

// Hub owns the connected websocket clients, one consultation controller
// each, keyed by user id. It also serves as the notification capability:
// "permission granted" means the recipient is currently connected.
type Hub struct {
	log           *zap.Logger
	directory     *consult.Directory
	newController ControllerFactory
	upgrader      websocket.Upgrader

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage

	onlineMu sync.RWMutex
	online   map[string]*Client

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(directory *consult.Directory, newController ControllerFactory, allowedOrigins []string, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		log:           log,
		directory:     directory,
		newController: newController,
		register:      make(chan *Client, 1024),
		unregister:    make(chan *Client, 1024),
		inbound:       make(chan inboundMessage, 4096), // buffer for burst handling
		online:        make(map[string]*Client),
		ctx:           ctx,
		cancel:        cancel,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	// run manager loop
	go h.run()

	// start worker loop
	for i := 0; i < workerPoolSize; i++ {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in, ok := <-h.inbound:
					if !ok {
						return
					}
					h.handleEvent(in.event, in.client)
				}
			}
		}()
	}

	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if origin == a {
				return true
			}
		}
		return false
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.onlineMu.Lock()
	if prev, ok := h.online[c.user.ID]; ok && prev != c {
		// One live connection per participant; the newer one wins.
		defer prev.Close()
	}
	h.online[c.user.ID] = c
	h.onlineMu.Unlock()
	h.log.Info("client registered", zap.String("client", c.ID), zap.String("user", c.user.ID))
}

func (h *Hub) removeClient(c *Client) {
	h.onlineMu.Lock()
	if cur, ok := h.online[c.user.ID]; ok && cur == c {
		delete(h.online, c.user.ID)
	}
	h.onlineMu.Unlock()

	c.Close()
	h.log.Info("client removed", zap.String("client", c.ID), zap.String("user", c.user.ID))
}

// handleEvent dispatches one inbound client event to that client's
// controller.
func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	ctx, cancel := context.WithTimeout(h.ctx, opTimeout)
	defer cancel()

	switch ev.Event {
	case event.EventSelectDoctor:
		var payload event.SelectDoctorPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			c.sendError("bad_payload", "malformed select_doctor payload")
			return
		}
		doctor, ok := h.directory.Find(payload.DoctorID)
		if !ok {
			c.sendError("unknown_doctor", "doctor not found: "+payload.DoctorID)
			return
		}
		if err := c.controller.SelectDoctor(ctx, doctor); err != nil {
			h.log.Error("select doctor failed", zap.String("user", c.user.ID), zap.Error(err))
			c.sendError("select_failed", "could not open consultation")
			return
		}
		session, _ := c.controller.Session()
		c.sendPayload(event.EventServerSession, event.SessionPayload{
			SessionKey:   session.Key,
			DoctorID:     session.DoctorID,
			VideoCallURL: c.controller.VideoCallURL(),
		})

	case event.EventClientMessage:
		var payload event.MessagePayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			c.sendError("bad_payload", "malformed message payload")
			return
		}
		if err := c.controller.Send(ctx, model.KindText, payload.Text, ""); err != nil {
			c.sendError(sendErrorCode(err), err.Error())
		}

	case event.EventTyping:
		if err := c.controller.OnLocalInputChanged(ctx); err != nil && !errors.Is(err, consult.ErrNoSession) {
			h.log.Debug("typing announce failed", zap.String("user", c.user.ID), zap.Error(err))
		}

	case event.EventRecordStart:
		if err := c.controller.StartRecording(ctx); err != nil {
			c.sendError(sendErrorCode(err), err.Error())
			return
		}
		c.sendPayload(event.EventServerRecording, event.RecordingPayload{Recording: true})

	case event.EventRecordStop:
		err := c.controller.StopRecordingAndSend(ctx)
		c.sendPayload(event.EventServerRecording, event.RecordingPayload{Recording: false})
		if err != nil {
			c.sendError(sendErrorCode(err), err.Error())
		}

	case event.EventAnalyzeSymptoms:
		var payload event.AnalyzePayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			c.sendError("bad_payload", "malformed analyze payload")
			return
		}
		report := c.controller.AnalyzeSymptoms(payload.Text)
		c.sendPayload(event.EventServerSymptomReport, report)

	default:
		h.log.Warn("unknown event type", zap.String("event", ev.Event))
	}
}

func sendErrorCode(err error) string {
	switch {
	case errors.Is(err, consult.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, consult.ErrNoSession):
		return "no_session"
	case errors.Is(err, consult.ErrNotRecording), errors.Is(err, consult.ErrAlreadyRecording):
		return "recording_state"
	case errors.Is(err, capture.ErrUnavailable):
		return "capture_unavailable"
	case errors.Is(err, capture.ErrPermissionDenied):
		return "permission_denied"
	default:
		return "store_error"
	}
}

// -----------------------------------------------------------------
// Notification capability (notify.Notifier)
// -----------------------------------------------------------------

// PermissionState treats a connected recipient as granted: desktop
// delivery only reaches participants with a live connection.
func (h *Hub) PermissionState(recipient string) notify.Permission {
	h.onlineMu.RLock()
	_, online := h.online[recipient]
	h.onlineMu.RUnlock()
	if online {
		return notify.PermissionGranted
	}
	return notify.PermissionDenied
}

// RequestPermission re-checks; there is no prompt to show server-side.
func (h *Hub) RequestPermission(recipient string) notify.Permission {
	return h.PermissionState(recipient)
}

func (h *Hub) Show(recipient, title, body string) error {
	h.onlineMu.RLock()
	c, online := h.online[recipient]
	h.onlineMu.RUnlock()
	if !online {
		return errors.New("recipient offline: " + recipient)
	}

	payload, _ := json.Marshal(event.NotificationPayload{Title: title, Body: body})
	if !c.SafeSend(event.WsEvent{Event: event.EventServerNotification, Payload: payload}, sendTimeout) {
		return errors.New("egress full for recipient " + recipient)
	}
	return nil
}

// -----------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, user model.Participant) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	RegisterClient(user, conn, h)
}

func (h *Hub) Stop() {
	h.cancel()

	h.onlineMu.RLock()
	for _, client := range h.online {
		client.Close()
	}
	h.onlineMu.RUnlock()

	close(h.inbound)
	h.wg.Wait()
}
