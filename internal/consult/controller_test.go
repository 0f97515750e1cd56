package consult

import (
	"context"
	"sync"
	"testing"
	"time"

	"MindEase/internal/model"
	"MindEase/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// notifyRecorder records dispatches into the fake store's op log so
// ordering against writes is observable.
type notifyRecorder struct {
	st      *fakeStore
	showErr error
	denied  bool
}

func (n *notifyRecorder) PermissionState(string) notify.Permission {
	if n.denied {
		return notify.PermissionDenied
	}
	return notify.PermissionGranted
}

func (n *notifyRecorder) RequestPermission(recipient string) notify.Permission {
	return n.PermissionState(recipient)
}

func (n *notifyRecorder) Show(recipient, title, body string) error {
	n.st.record(storeOp{op: "notify", path: recipient, fields: map[string]any{"title": title, "body": body}})
	return n.showErr
}

type staticDoctors []model.Doctor

func (s staticDoctors) Doctors() []model.Doctor { return s }

// memSink captures controller pushes for assertions.
type memSink struct {
	mu     sync.Mutex
	views  [][]model.Message
	typing []bool
}

func (s *memSink) MessagesChanged(msgs []model.Message) {
	s.mu.Lock()
	s.views = append(s.views, msgs)
	s.mu.Unlock()
}

func (s *memSink) TypingChanged(t bool) {
	s.mu.Lock()
	s.typing = append(s.typing, t)
	s.mu.Unlock()
}

func (s *memSink) lastView() ([]model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.views) == 0 {
		return nil, false
	}
	return s.views[len(s.views)-1], true
}

var testDoctor = model.Doctor{ID: "d1", Name: "Dr. Rivera", Specialty: "Anxiety Specialist", Available: true}

func newTestController(st *fakeStore, notifier notify.Notifier, sink Sink) *Controller {
	return NewController(ControllerConfig{
		Store:    st,
		User:     model.Participant{ID: "u1", Name: "Sam"},
		Doctors:  staticDoctors{testDoctor},
		Notifier: notify.NewDispatcher(notifier, nil),
		Sink:     sink,
	})
}

func TestControllerSendWithoutSession(t *testing.T) {
	c := newTestController(newFakeStore(), nil, nil)
	defer c.Close()

	err := c.Send(context.Background(), model.KindText, "hello", "")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestControllerSendWhitespaceOnly(t *testing.T) {
	st := newFakeStore()
	c := newTestController(st, nil, nil)
	defer c.Close()

	require.NoError(t, c.SelectDoctor(context.Background(), testDoctor))

	err := c.Send(context.Background(), model.KindText, "   \n\t ", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	for _, op := range st.opsSnapshot() {
		assert.NotEqual(t, "append", op.op, "a blank message must never be appended")
	}
}

func TestControllerSendUnknownKind(t *testing.T) {
	c := newTestController(newFakeStore(), nil, nil)
	defer c.Close()

	require.NoError(t, c.SelectDoctor(context.Background(), testDoctor))
	err := c.Send(context.Background(), "video", "x", "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestControllerSendOrdering(t *testing.T) {
	st := newFakeStore()
	notifier := &notifyRecorder{st: st}
	c := newTestController(st, notifier, nil)
	defer c.Close()

	require.NoError(t, c.SelectDoctor(context.Background(), testDoctor))
	require.NoError(t, c.Send(context.Background(), model.KindText, "hello doc", ""))

	appendAt, summaryAt, notifyAt := -1, -1, -1
	for i, op := range st.opsSnapshot() {
		switch {
		case op.op == "append" && op.path == "chats/u1_d1/messages":
			appendAt = i
		case op.op == "put" && op.path == "chats/u1_d1" && op.fields["last_message"] != nil:
			summaryAt = i
		case op.op == "notify":
			notifyAt = i
			assert.Equal(t, "d1", op.path)
			assert.Equal(t, "New message to Dr. Rivera", op.fields["title"])
			assert.Equal(t, "hello doc", op.fields["body"])
		}
	}

	require.GreaterOrEqual(t, appendAt, 0, "message append missing")
	require.GreaterOrEqual(t, summaryAt, 0, "session summary write missing")
	require.GreaterOrEqual(t, notifyAt, 0, "notification missing")
	assert.Less(t, appendAt, summaryAt)
	assert.Less(t, summaryAt, notifyAt)
}

func TestControllerSendSurvivesNotifierFailure(t *testing.T) {
	st := newFakeStore()
	notifier := &notifyRecorder{st: st, showErr: assert.AnError}
	c := newTestController(st, notifier, nil)
	defer c.Close()

	require.NoError(t, c.SelectDoctor(context.Background(), testDoctor))
	assert.NoError(t, c.Send(context.Background(), model.KindText, "hello", ""))
}

func TestControllerSendWithoutNotifier(t *testing.T) {
	st := newFakeStore()
	c := newTestController(st, nil, nil)
	defer c.Close()

	require.NoError(t, c.SelectDoctor(context.Background(), testDoctor))
	assert.NoError(t, c.Send(context.Background(), model.KindText, "hello", ""))
}

func TestControllerSummaryFailureStillNotifies(t *testing.T) {
	st := newFakeStore()
	notifier := &notifyRecorder{st: st}
	c := newTestController(st, notifier, nil)
	defer c.Close()

	require.NoError(t, c.SelectDoctor(context.Background(), testDoctor))

	st.mu.Lock()
	st.failPut = assert.AnError
	st.mu.Unlock()

	err := c.Send(context.Background(), model.KindText, "hello", "")
	assert.Error(t, err, "summary failure is reported")

	notified := false
	for _, op := range st.opsSnapshot() {
		if op.op == "notify" {
			notified = true
		}
	}
	assert.True(t, notified, "notification fires even when the summary write failed")
}

func TestControllerAppendFailureSuppressesEverything(t *testing.T) {
	st := newFakeStore()
	notifier := &notifyRecorder{st: st}
	c := newTestController(st, notifier, nil)
	defer c.Close()

	require.NoError(t, c.SelectDoctor(context.Background(), testDoctor))

	st.mu.Lock()
	st.failAppend = assert.AnError
	st.mu.Unlock()

	require.Error(t, c.Send(context.Background(), model.KindText, "hello", ""))

	for _, op := range st.opsSnapshot() {
		assert.NotEqual(t, "notify", op.op, "no notification for a message that was never appended")
		if op.op == "put" {
			assert.Nil(t, op.fields["last_message"], "no summary for a message that was never appended")
		}
	}
}

func TestControllerLiveViewAndDoctorSwitch(t *testing.T) {
	st := newFakeStore()
	sink := &memSink{}
	c := newTestController(st, nil, sink)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.SelectDoctor(ctx, testDoctor))
	require.NoError(t, c.Send(ctx, model.KindText, "hello", ""))

	require.Eventually(t, func() bool {
		view, ok := sink.lastView()
		return ok && len(view) == 1 && view[0].Text == "hello"
	}, time.Second, 5*time.Millisecond)

	// Switching doctors re-keys the session; the old conversation must
	// never bleed into the new view.
	other := model.Doctor{ID: "d2", Name: "Dr. Okafor", Specialty: "Sleep Specialist"}
	require.NoError(t, c.SelectDoctor(ctx, other))

	session, ok := c.Session()
	require.True(t, ok)
	assert.Equal(t, "u1_d2", session.Key)

	require.Eventually(t, func() bool {
		view, ok := sink.lastView()
		return ok && len(view) == 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Send(ctx, model.KindText, "different doctor", ""))
	require.Eventually(t, func() bool {
		view, ok := sink.lastView()
		return ok && len(view) == 1 && view[0].Text == "different doctor"
	}, time.Second, 5*time.Millisecond)
}

func TestControllerSelectDoctorInvalid(t *testing.T) {
	c := newTestController(newFakeStore(), nil, nil)
	defer c.Close()

	assert.ErrorIs(t, c.SelectDoctor(context.Background(), model.Doctor{}), ErrInvalidDoctor)
}

func TestControllerVideoCallURL(t *testing.T) {
	c := newTestController(newFakeStore(), nil, nil)
	defer c.Close()

	assert.Empty(t, c.VideoCallURL())

	require.NoError(t, c.SelectDoctor(context.Background(), testDoctor))
	assert.Equal(t, DefaultVideoRoomBaseURL+"?roomId=u1_d1", c.VideoCallURL())
}

func TestControllerSymptomReportLifecycle(t *testing.T) {
	c := newTestController(newFakeStore(), nil, nil)
	defer c.Close()

	_, held := c.Report()
	assert.False(t, held)

	report := c.AnalyzeSymptoms("panic attacks on the subway")
	assert.Equal(t, "Anxiety Specialist", report.Suggestion)

	got, held := c.Report()
	require.True(t, held)
	assert.Equal(t, report, got)

	c.ClearSymptomReport()
	_, held = c.Report()
	assert.False(t, held)
}

func TestControllerFindDoctorBySpecialty(t *testing.T) {
	c := newTestController(newFakeStore(), nil, nil)
	defer c.Close()

	doc, ok := c.FindDoctorBySpecialty("Anxiety Specialist")
	require.True(t, ok)
	assert.Equal(t, "d1", doc.ID)

	_, ok = c.FindDoctorBySpecialty("Dermatologist")
	assert.False(t, ok)

	_, ok = c.FindDoctorBySpecialty("")
	assert.False(t, ok)
}

func TestControllerVoiceMessage(t *testing.T) {
	st := newFakeStore()
	notifier := &notifyRecorder{st: st}
	handle := newFakeHandle()
	clips := NewClipStore()

	c := NewController(ControllerConfig{
		Store:    st,
		User:     model.Participant{ID: "u1"},
		Doctors:  staticDoctors{testDoctor},
		Capture:  &fakeProvider{handle: handle},
		Notifier: notify.NewDispatcher(notifier, nil),
		Clips:    clips,
	})
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.SelectDoctor(ctx, testDoctor))

	require.NoError(t, c.StartRecording(ctx))
	assert.True(t, c.Recording())
	handle.chunks <- []byte("opus-frame")

	require.NoError(t, c.StopRecordingAndSend(ctx))
	assert.False(t, c.Recording())

	var appendOp, summaryOp, notifyOp *storeOp
	ops := st.opsSnapshot()
	for i := range ops {
		op := &ops[i]
		switch {
		case op.op == "append":
			appendOp = op
		case op.op == "put" && op.fields["last_message"] != nil:
			summaryOp = op
		case op.op == "notify":
			notifyOp = op
		}
	}

	require.NotNil(t, appendOp)
	assert.Equal(t, model.KindVoice, appendOp.fields["kind"])
	ref, _ := appendOp.fields["audio_ref"].(string)
	_, stored := clips.Get(ref)
	assert.True(t, stored, "audio ref must resolve in the clip store")

	require.NotNil(t, summaryOp)
	assert.Equal(t, "Voice note", summaryOp.fields["last_message"])

	require.NotNil(t, notifyOp)
	assert.Equal(t, "", notifyOp.fields["body"], "voice notifications carry no body text")
}

func TestControllerRemoteTypingFeed(t *testing.T) {
	st := newFakeStore()
	sink := &memSink{}
	c := newTestController(st, nil, sink)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.SelectDoctor(ctx, testDoctor))

	// The doctor side merge-writes its flag; the user's controller must
	// surface it without touching its own.
	require.NoError(t, st.inner.Put(ctx, "chats/u1_d1/meta/typing", map[string]any{"doctor_typing": true}, true))

	require.Eventually(t, c.RemoteTyping, time.Second, 5*time.Millisecond)

	require.NoError(t, st.inner.Put(ctx, "chats/u1_d1/meta/typing", map[string]any{"doctor_typing": false}, true))
	require.Eventually(t, func() bool { return !c.RemoteTyping() }, time.Second, 5*time.Millisecond)
}
