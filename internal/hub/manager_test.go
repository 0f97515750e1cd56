package hub

import (
	"net/http/httptest"
	"testing"

	"MindEase/internal/capture"
	"MindEase/internal/consult"

	"github.com/stretchr/testify/assert"
)

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{name: "allowed origin", origin: "http://localhost:3000", want: true},
		{name: "disallowed origin", origin: "http://evil.example", want: false},
		{name: "no origin header", origin: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/consult", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, check(r))
		})
	}
}

func TestSendErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "empty message", err: consult.ErrEmptyMessage, want: "empty_message"},
		{name: "no session", err: consult.ErrNoSession, want: "no_session"},
		{name: "not recording", err: consult.ErrNotRecording, want: "recording_state"},
		{name: "already recording", err: consult.ErrAlreadyRecording, want: "recording_state"},
		{name: "capture unavailable", err: capture.ErrUnavailable, want: "capture_unavailable"},
		{name: "permission denied", err: capture.ErrPermissionDenied, want: "permission_denied"},
		{name: "anything else", err: assert.AnError, want: "store_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sendErrorCode(tt.err))
		})
	}
}
