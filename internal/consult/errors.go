package consult

import "errors"

var (
	ErrNoSession        = errors.New("no active consultation session")
	ErrEmptyMessage     = errors.New("message text is empty")
	ErrUnknownKind      = errors.New("unknown message kind")
	ErrInvalidDoctor    = errors.New("doctor id is empty")
	ErrNotRecording     = errors.New("no recording in progress")
	ErrAlreadyRecording = errors.New("recording already in progress")
)
