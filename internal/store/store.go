package store

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrBadPath       = errors.New("invalid document path")
	ErrNotCollection = errors.New("path does not reference a collection")
	ErrNotDocument   = errors.New("path does not reference a document")
	ErrClosed        = errors.New("subscription closed")
)

// ServerTimestamp is a sentinel field value. A field written with this
// value is replaced at write time by the store's own monotonic clock;
// clients never supply wall-clock ordering keys themselves.
type ServerTimestamp struct{}

// OrderBy names the field snapshots are sorted on.
type OrderBy struct {
	Field     string
	Ascending bool
}

// Document is one record of a snapshot. Fields is a decoded view of the
// stored record, without adapter-internal bookkeeping fields.
type Document struct {
	ID     string
	Fields map[string]any
}

// Snapshot carries the full current ordered set for the subscribed
// target, never a diff. Consumers replace their view wholesale.
type Snapshot struct {
	Docs []Document
}

// Subscription is a cancellable stream of full ordered snapshots.
// The channel is closed when the stream terminates; Err reports why
// (nil after a plain Close).
type Subscription interface {
	Snapshots() <-chan Snapshot
	Err() error
	Close()
}

// Store is the realtime document store this service writes through and
// subscribes to. Paths are alternating collection/document segments,
// e.g. "chats", "chats/<key>/messages", "chats/<key>/meta/typing".
type Store interface {
	// Put writes a document. With merge true only the given fields are
	// updated, other fields are left untouched; the document is created
	// if absent.
	Put(ctx context.Context, path string, fields map[string]any, merge bool) error

	// Append adds a new document to a collection and returns its
	// store-assigned id.
	Append(ctx context.Context, collectionPath string, fields map[string]any) (string, error)

	// Subscribe opens a snapshot stream for a collection or a single
	// document. Each emission is the full current ordered set.
	Subscribe(ctx context.Context, path string, order OrderBy) (Subscription, error)
}

// splitPath validates and splits a slash-separated path. At most two
// levels of nesting (four segments) are supported.
func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrBadPath
	}
	segs := strings.Split(path, "/")
	if len(segs) > 4 {
		return nil, ErrBadPath
	}
	for _, s := range segs {
		if s == "" {
			return nil, ErrBadPath
		}
	}
	return segs, nil
}
