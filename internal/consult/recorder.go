package consult

import (
	"context"
	"sync"

	"MindEase/internal/capture"

	"github.com/google/uuid"
)

// ClipStore holds finalized voice clips behind opaque references. Clips
// are transient: they live only as long as this process. Durable
// voice-note storage is out of scope.
type ClipStore struct {
	mu    sync.Mutex
	clips map[string][]byte
}

func NewClipStore() *ClipStore {
	return &ClipStore{clips: make(map[string][]byte)}
}

// Put stores a clip and returns the reference used as a message's
// audioRef. The core never interprets the reference.
func (c *ClipStore) Put(data []byte) string {
	ref := "voice:" + uuid.NewString()
	c.mu.Lock()
	c.clips[ref] = data
	c.mu.Unlock()
	return ref
}

func (c *ClipStore) Get(ref string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.clips[ref]
	return data, ok
}

// Recorder is the voice capture pipeline: a two-state machine (idle,
// capturing) over the capture capability. No error state is modeled;
// a failed acquisition leaves the recorder idle.
type Recorder struct {
	provider capture.Provider
	clips    *ClipStore

	mu        sync.Mutex
	recording bool
	handle    capture.Handle
	chunks    [][]byte
	collected chan struct{}
}

func NewRecorder(provider capture.Provider, clips *ClipStore) *Recorder {
	if provider == nil {
		provider = capture.Unavailable()
	}
	return &Recorder{provider: provider, clips: clips}
}

// Start acquires the device and begins buffering encoded chunks in
// arrival order. A second Start while capturing is a caller error.
// Acquisition failures (capture.ErrUnavailable, capture.ErrPermissionDenied)
// propagate unchanged.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}

	handle, err := r.provider.Acquire(ctx)
	if err != nil {
		return err
	}
	if err := handle.Start(); err != nil {
		handle.Release()
		return err
	}

	r.recording = true
	r.handle = handle
	r.chunks = nil
	r.collected = make(chan struct{})

	go r.collect(handle, r.collected)
	return nil
}

func (r *Recorder) collect(handle capture.Handle, done chan struct{}) {
	for chunk := range handle.Chunks() {
		r.mu.Lock()
		r.chunks = append(r.chunks, chunk)
		r.mu.Unlock()
	}
	close(done)
}

// Stop finalizes the buffered chunks into one clip, releases the device
// and returns the audioRef. Stop while idle is a caller error and
// performs no work.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return "", ErrNotRecording
	}
	r.recording = false
	handle := r.handle
	collected := r.collected
	r.handle = nil
	r.mu.Unlock()

	err := handle.Stop()
	<-collected // all delivered chunks are buffered once the channel closes
	handle.Release()
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	var size int
	for _, c := range r.chunks {
		size += len(c)
	}
	data := make([]byte, 0, size)
	for _, c := range r.chunks {
		data = append(data, c...)
	}
	r.chunks = nil
	r.mu.Unlock()

	return r.clips.Put(data), nil
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}
