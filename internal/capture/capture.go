// Package capture abstracts the device audio capture capability.
// The consultation core only drives the state machine around it; the
// actual microphone access belongs to whichever platform adapter is
// plugged in.
package capture

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable means the platform offers no microphone capability.
	ErrUnavailable = errors.New("audio capture unavailable")
	// ErrPermissionDenied means the user declined microphone access.
	// The feature stays retryable; permission can be requested again on
	// the next attempt.
	ErrPermissionDenied = errors.New("audio capture permission denied")
)

// Handle is an acquired capture device. It is exclusively owned by one
// recording between Start and Stop.
type Handle interface {
	// Start begins capturing. Encoded chunks arrive on Chunks in
	// delivery order.
	Start() error
	// Chunks delivers encoded audio chunks. The channel is closed after
	// Stop.
	Chunks() <-chan []byte
	// Stop ends capturing and closes the chunk channel.
	Stop() error
	// Release frees the underlying device track(s).
	Release()
}

// Provider acquires capture handles.
type Provider interface {
	Acquire(ctx context.Context) (Handle, error)
}

type unavailable struct{}

func (unavailable) Acquire(context.Context) (Handle, error) {
	return nil, ErrUnavailable
}

// Unavailable returns a Provider for deployments without microphone
// access (the server-side default; capture happens in the browser, not
// here). Recording degrades to a disabled feature.
func Unavailable() Provider {
	return unavailable{}
}
