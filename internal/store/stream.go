package store

import "sync"

const streamBufSize = 16

// snapshotStream is the Subscription implementation shared by the
// adapters. Pushes coalesce: when the consumer lags, the oldest pending
// snapshot is dropped, because every snapshot is the full current set
// and only the latest one matters.
type snapshotStream struct {
	ch     chan Snapshot
	cancel func()

	mu     sync.Mutex
	err    error
	closed bool
}

func newSnapshotStream(cancel func()) *snapshotStream {
	return &snapshotStream{
		ch:     make(chan Snapshot, streamBufSize),
		cancel: cancel,
	}
}

func (s *snapshotStream) Snapshots() <-chan Snapshot { return s.ch }

func (s *snapshotStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *snapshotStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(nil)
}

// push delivers a snapshot, dropping the oldest pending one if the
// buffer is full. Returns false once the stream is closed.
func (s *snapshotStream) push(snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for {
		select {
		case s.ch <- snap:
			return true
		default:
			select {
			case <-s.ch: // discard stale snapshot
			default:
			}
		}
	}
}

// fail terminates the stream with an error. Surfaces to the consumer as
// a closed channel plus a non-nil Err (the "stale session" condition).
func (s *snapshotStream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(err)
}

func (s *snapshotStream) closeLocked(err error) {
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	if s.cancel != nil {
		s.cancel()
	}
	close(s.ch)
}
