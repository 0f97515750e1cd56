package consult

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"MindEase/internal/capture"
	"MindEase/internal/model"
	"MindEase/internal/notify"
	"MindEase/internal/store"

	"go.uber.org/zap"
)

// DefaultVideoRoomBaseURL is the hosted room preview the video-call
// button opens; the room id is the session key.
const DefaultVideoRoomBaseURL = "https://app.videosdk.live/preview"

// DoctorSource supplies the current doctor directory.
type DoctorSource interface {
	Doctors() []model.Doctor
}

// Sink receives state-change signals for the presentation layer. A new
// message emission being applied is also the scroll-to-latest trigger.
type Sink interface {
	MessagesChanged(msgs []model.Message)
	TypingChanged(typing bool)
}

type nopSink struct{}

func (nopSink) MessagesChanged([]model.Message) {}
func (nopSink) TypingChanged(bool)              {}

// ControllerConfig wires one client's controller. Store and User are
// required; everything else has a sensible default.
type ControllerConfig struct {
	Store            store.Store
	User             model.Participant
	Role             model.Role
	Doctors          DoctorSource
	Capture          capture.Provider
	Notifier         *notify.Dispatcher
	Engine           *RuleEngine
	Clips            *ClipStore
	Sink             Sink
	TypingExpiry     time.Duration
	VideoRoomBaseURL string
	Log              *zap.Logger
}

// Controller orchestrates one participant's consultation state: the
// active session, the live message view, typing presence, recording and
// symptom analysis. All operations are safe for concurrent use; state
// mutations are serialized on one mutex, and I/O happens outside it.
type Controller struct {
	st           store.Store
	user         model.Participant
	role         model.Role
	doctors      DoctorSource
	dispatcher   *notify.Dispatcher
	engine       *RuleEngine
	sink         Sink
	videoBaseURL string
	log          *zap.Logger

	merger   *Merger
	presence *PresenceCoordinator
	recorder *Recorder

	mu        sync.Mutex
	session   *model.ConsultationSession
	doctor    *model.Doctor
	report    *model.SymptomReport
	stale     bool
	msgSub    store.Subscription
	typingSub store.Subscription
}

func NewController(cfg ControllerConfig) *Controller {
	if cfg.Role == "" {
		cfg.Role = model.RoleUser
	}
	if cfg.Engine == nil {
		cfg.Engine = NewRuleEngine(nil, "", "", "")
	}
	if cfg.Clips == nil {
		cfg.Clips = NewClipStore()
	}
	if cfg.Sink == nil {
		cfg.Sink = nopSink{}
	}
	if cfg.VideoRoomBaseURL == "" {
		cfg.VideoRoomBaseURL = DefaultVideoRoomBaseURL
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	return &Controller{
		st:           cfg.Store,
		user:         cfg.User,
		role:         cfg.Role,
		doctors:      cfg.Doctors,
		dispatcher:   cfg.Notifier,
		engine:       cfg.Engine,
		sink:         cfg.Sink,
		videoBaseURL: cfg.VideoRoomBaseURL,
		log:          cfg.Log,
		merger:       NewMerger(),
		presence:     NewPresenceCoordinator(cfg.Store, cfg.Role, cfg.TypingExpiry, cfg.Log),
		recorder:     NewRecorder(cfg.Capture, cfg.Clips),
	}
}

// SelectDoctor resolves the session key for the pair, upserts the
// session record (creating it on first contact), detaches any previous
// subscriptions and attaches the message and presence feeds tagged to
// the new key.
func (c *Controller) SelectDoctor(ctx context.Context, doctor model.Doctor) error {
	if doctor.ID == "" {
		return ErrInvalidDoctor
	}

	key := SessionKey(c.user.ID, doctor.ID)

	err := c.st.Put(ctx, sessionPath(key), map[string]any{
		"user_id":        c.user.ID,
		"doctor_id":      doctor.ID,
		"last_timestamp": store.ServerTimestamp{},
	}, true)
	if err != nil {
		// The previous session, if any, stays attached and usable.
		return fmt.Errorf("upsert session %s: %w", key, err)
	}

	c.detach()

	msgGen := c.merger.Attach(key)
	typingGen := c.presence.Attach(key)

	msgSub, err := c.st.Subscribe(ctx, messagesPath(key), store.OrderBy{Field: "sent_at", Ascending: true})
	if err != nil {
		c.merger.Detach()
		c.presence.Detach()
		return fmt.Errorf("subscribe messages %s: %w", key, err)
	}

	typingSub, err := c.st.Subscribe(ctx, typingPath(key), store.OrderBy{})
	if err != nil {
		msgSub.Close()
		c.merger.Detach()
		c.presence.Detach()
		return fmt.Errorf("subscribe typing %s: %w", key, err)
	}

	c.mu.Lock()
	c.session = &model.ConsultationSession{Key: key, UserID: c.user.ID, DoctorID: doctor.ID}
	c.doctor = &doctor
	c.stale = false
	c.msgSub = msgSub
	c.typingSub = typingSub
	c.mu.Unlock()

	go c.pumpMessages(msgSub, msgGen)
	go c.pumpTyping(typingSub, typingGen)

	c.log.Info("consultation session attached",
		zap.String("session", key),
		zap.String("doctor", doctor.ID),
	)
	return nil
}

func (c *Controller) pumpMessages(sub store.Subscription, generation uint64) {
	for snap := range sub.Snapshots() {
		if view, ok := c.merger.Apply(generation, snap); ok {
			c.sink.MessagesChanged(view)
		}
	}
	c.streamEnded(sub, c.merger.Current(generation))
}

func (c *Controller) pumpTyping(sub store.Subscription, generation uint64) {
	for snap := range sub.Snapshots() {
		if typing, ok := c.presence.ApplyRemote(generation, snap); ok {
			c.sink.TypingChanged(typing)
		}
	}
	c.streamEnded(sub, c.presence.Current(generation))
}

// streamEnded marks the session stale when a live subscription dies.
// There is no auto-resubscribe; re-selecting the doctor is the recovery
// path.
func (c *Controller) streamEnded(sub store.Subscription, current bool) {
	err := sub.Err()
	if err == nil || !current {
		// Plain detach, or a newer session took over already.
		return
	}
	c.mu.Lock()
	c.stale = true
	key := ""
	if c.session != nil {
		key = c.session.Key
	}
	c.mu.Unlock()
	c.log.Warn("session subscription terminated", zap.String("session", key), zap.Error(err))
}

// Send validates and appends a message, then updates the session's
// last-message summary and finally fires the best-effort notification.
// The append gates everything: nothing downstream runs for a message
// that was never durably appended. A summary failure is reported but
// does not suppress the notification.
func (c *Controller) Send(ctx context.Context, kind, text, audioRef string) error {
	c.mu.Lock()
	session := c.session
	doctor := c.doctor
	c.mu.Unlock()
	if session == nil {
		return ErrNoSession
	}

	fields := map[string]any{
		"sender_id": c.user.ID,
		"kind":      kind,
		"sent_at":   store.ServerTimestamp{},
	}
	summary := ""
	switch kind {
	case model.KindText:
		text = strings.TrimSpace(text)
		if text == "" {
			return ErrEmptyMessage
		}
		fields["text"] = text
		summary = text
	case model.KindVoice:
		fields["audio_ref"] = audioRef
		summary = "Voice note"
	default:
		return ErrUnknownKind
	}

	id, err := c.st.Append(ctx, messagesPath(session.Key), fields)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	sumErr := c.st.Put(ctx, sessionPath(session.Key), map[string]any{
		"last_message":   summary,
		"last_timestamp": store.ServerTimestamp{},
	}, true)
	if sumErr != nil {
		sumErr = fmt.Errorf("update session summary: %w", sumErr)
		c.log.Warn("session summary update failed", zap.String("session", session.Key), zap.Error(sumErr))
	}

	// Best-effort, contingent only on the append having succeeded.
	c.dispatcher.Dispatch(doctor.ID, "New message to "+doctor.Name, text)

	c.log.Debug("message sent",
		zap.String("session", session.Key),
		zap.String("id", id),
		zap.String("kind", kind),
	)
	return sumErr
}

// OnLocalInputChanged forwards a text-input change to the presence
// coordinator.
func (c *Controller) OnLocalInputChanged(ctx context.Context) error {
	return c.presence.InputChanged(ctx)
}

// StartRecording begins a voice capture.
func (c *Controller) StartRecording(ctx context.Context) error {
	return c.recorder.Start(ctx)
}

// StopRecordingAndSend finalizes the capture and sends the clip through
// the shared send path as a voice message.
func (c *Controller) StopRecordingAndSend(ctx context.Context) error {
	ref, err := c.recorder.Stop()
	if err != nil {
		return err
	}
	return c.Send(ctx, model.KindVoice, "", ref)
}

// AnalyzeSymptoms runs the rule engine and keeps the report in local
// ephemeral state only.
func (c *Controller) AnalyzeSymptoms(text string) model.SymptomReport {
	report := c.engine.Analyze(text)
	c.mu.Lock()
	c.report = &report
	c.mu.Unlock()
	return report
}

// ClearSymptomReport discards the held report (modal closed).
func (c *Controller) ClearSymptomReport() {
	c.mu.Lock()
	c.report = nil
	c.mu.Unlock()
}

// FindDoctorBySpecialty scans the doctor directory for a specialty name
// containing the first word of the hint, case-insensitively. Best
// effort; used to jump from a symptom suggestion to a matching doctor.
func (c *Controller) FindDoctorBySpecialty(hint string) (model.Doctor, bool) {
	words := strings.Fields(strings.ToLower(hint))
	if len(words) == 0 || c.doctors == nil {
		return model.Doctor{}, false
	}
	for _, d := range c.doctors.Doctors() {
		if strings.Contains(strings.ToLower(d.Specialty), words[0]) {
			return d, true
		}
	}
	return model.Doctor{}, false
}

// VideoCallURL returns the hosted video room URL for the active
// session, or empty when no session is active.
func (c *Controller) VideoCallURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.videoBaseURL + "?roomId=" + c.session.Key
}

// Messages returns the current ordered message view.
func (c *Controller) Messages() []model.Message { return c.merger.Messages() }

// RemoteTyping returns the other participant's typing flag as last read.
func (c *Controller) RemoteTyping() bool { return c.presence.RemoteTyping() }

// Recording reports whether a voice capture is in progress.
func (c *Controller) Recording() bool { return c.recorder.Recording() }

// Report returns the held symptom report, if any.
func (c *Controller) Report() (model.SymptomReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report == nil {
		return model.SymptomReport{}, false
	}
	return *c.report, true
}

// Session returns the active session, if any.
func (c *Controller) Session() (model.ConsultationSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return model.ConsultationSession{}, false
	}
	return *c.session, true
}

// Stale reports whether the live feed for the active session has
// terminated. Re-selecting the doctor recovers.
func (c *Controller) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

// Close detaches all subscriptions and timers. The controller is done
// after this; a stopped recording, if any, is discarded.
func (c *Controller) Close() {
	c.detach()
	if c.recorder.Recording() {
		if _, err := c.recorder.Stop(); err != nil && err != ErrNotRecording {
			c.log.Debug("discarding recording on close", zap.Error(err))
		}
	}
	c.mu.Lock()
	c.session = nil
	c.doctor = nil
	c.mu.Unlock()
}

func (c *Controller) detach() {
	c.mu.Lock()
	msgSub, typingSub := c.msgSub, c.typingSub
	c.msgSub, c.typingSub = nil, nil
	c.mu.Unlock()

	c.merger.Detach()
	c.presence.Detach()
	if msgSub != nil {
		msgSub.Close()
	}
	if typingSub != nil {
		typingSub.Close()
	}
}
