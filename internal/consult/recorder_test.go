package consult

import (
	"context"
	"testing"

	"MindEase/internal/capture"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	chunks   chan []byte
	started  bool
	released bool
	startErr error
	stopErr  error
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{chunks: make(chan []byte, 16)}
}

func (h *fakeHandle) Start() error {
	if h.startErr != nil {
		return h.startErr
	}
	h.started = true
	return nil
}

func (h *fakeHandle) Chunks() <-chan []byte { return h.chunks }

func (h *fakeHandle) Stop() error {
	close(h.chunks)
	return h.stopErr
}

func (h *fakeHandle) Release() { h.released = true }

type fakeProvider struct {
	handle     *fakeHandle
	acquireErr error
}

func (p *fakeProvider) Acquire(context.Context) (capture.Handle, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	return p.handle, nil
}

func TestRecorderRoundTripPreservesChunkOrder(t *testing.T) {
	handle := newFakeHandle()
	clips := NewClipStore()
	r := NewRecorder(&fakeProvider{handle: handle}, clips)

	require.NoError(t, r.Start(context.Background()))
	assert.True(t, r.Recording())

	handle.chunks <- []byte("one ")
	handle.chunks <- []byte("two ")
	handle.chunks <- []byte("three")

	ref, err := r.Stop()
	require.NoError(t, err)
	assert.False(t, r.Recording())
	assert.True(t, handle.released)

	data, ok := clips.Get(ref)
	require.True(t, ok)
	assert.Equal(t, "one two three", string(data))
}

func TestRecorderStopWithoutStart(t *testing.T) {
	clips := NewClipStore()
	r := NewRecorder(&fakeProvider{handle: newFakeHandle()}, clips)

	_, err := r.Stop()
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestRecorderDoubleStart(t *testing.T) {
	handle := newFakeHandle()
	r := NewRecorder(&fakeProvider{handle: handle}, NewClipStore())

	require.NoError(t, r.Start(context.Background()))
	assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyRecording)

	_, err := r.Stop()
	require.NoError(t, err)
}

func TestRecorderAcquireFailureLeavesIdle(t *testing.T) {
	r := NewRecorder(&fakeProvider{acquireErr: capture.ErrPermissionDenied}, NewClipStore())

	err := r.Start(context.Background())
	assert.ErrorIs(t, err, capture.ErrPermissionDenied)
	assert.False(t, r.Recording())

	// Retryable: a later attempt may succeed.
	_, stopErr := r.Stop()
	assert.ErrorIs(t, stopErr, ErrNotRecording)
}

func TestRecorderStartFailureReleasesHandle(t *testing.T) {
	handle := newFakeHandle()
	handle.startErr = assert.AnError
	r := NewRecorder(&fakeProvider{handle: handle}, NewClipStore())

	assert.Error(t, r.Start(context.Background()))
	assert.True(t, handle.released)
	assert.False(t, r.Recording())
}

func TestRecorderUnavailableProvider(t *testing.T) {
	r := NewRecorder(capture.Unavailable(), NewClipStore())
	assert.ErrorIs(t, r.Start(context.Background()), capture.ErrUnavailable)
}

func TestClipStoreRefsAreOpaqueAndUnique(t *testing.T) {
	clips := NewClipStore()

	refA := clips.Put([]byte("a"))
	refB := clips.Put([]byte("b"))
	assert.NotEqual(t, refA, refB)

	_, ok := clips.Get("voice:unknown")
	assert.False(t, ok)
}
