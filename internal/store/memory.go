package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store. It backs the "memory" storage mode and
// the test suites; semantics (merge writes, server timestamps, full
// ordered snapshots) match the Mongo adapter.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]map[string]map[string]any // collection path -> doc id -> fields
	subs    map[*snapshotStream]memTarget
	lastTS  time.Time
}

type memTarget struct {
	bucket string
	doc    string // empty for collection subscriptions
	order  OrderBy
}

func NewMemory() *Memory {
	return &Memory{
		buckets: make(map[string]map[string]map[string]any),
		subs:    make(map[*snapshotStream]memTarget),
	}
}

func (m *Memory) Put(ctx context.Context, path string, fields map[string]any, merge bool) error {
	bucket, doc, err := m.docRef(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.buckets[bucket]
	if b == nil {
		b = make(map[string]map[string]any)
		m.buckets[bucket] = b
	}

	cur := b[doc]
	if cur == nil || !merge {
		cur = make(map[string]any)
		b[doc] = cur
	}
	for k, v := range m.resolveTimestamps(fields) {
		cur[k] = v
	}

	m.notifyLocked(bucket, doc)
	return nil
}

func (m *Memory) Append(ctx context.Context, collectionPath string, fields map[string]any) (string, error) {
	segs, err := splitPath(collectionPath)
	if err != nil {
		return "", err
	}
	if len(segs)%2 == 0 {
		return "", ErrNotCollection
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.buckets[collectionPath]
	if b == nil {
		b = make(map[string]map[string]any)
		m.buckets[collectionPath] = b
	}

	id := uuid.NewString()
	b[id] = m.resolveTimestamps(fields)

	m.notifyLocked(collectionPath, id)
	return id, nil
}

func (m *Memory) Subscribe(ctx context.Context, path string, order OrderBy) (Subscription, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	target := memTarget{bucket: path, order: order}
	if len(segs)%2 == 0 {
		target.bucket = strings.Join(segs[:len(segs)-1], "/")
		target.doc = segs[len(segs)-1]
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var sub *snapshotStream
	sub = newSnapshotStream(func() {
		// Detach without blocking: Close may be called from a consumer
		// holding no locks, or from notifyLocked's own caller.
		go func() {
			m.mu.Lock()
			delete(m.subs, sub)
			m.mu.Unlock()
		}()
	})
	m.subs[sub] = target

	sub.push(m.snapshotLocked(target))
	return sub, nil
}

func (m *Memory) docRef(path string) (bucket, doc string, err error) {
	segs, err := splitPath(path)
	if err != nil {
		return "", "", err
	}
	if len(segs)%2 != 0 {
		return "", "", ErrNotDocument
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1], nil
}

// now returns a strictly increasing timestamp. Callers hold m.mu.
func (m *Memory) now() time.Time {
	t := time.Now().UTC()
	if !t.After(m.lastTS) {
		t = m.lastTS.Add(time.Microsecond)
	}
	m.lastTS = t
	return t
}

func (m *Memory) resolveTimestamps(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(ServerTimestamp); ok {
			out[k] = m.now()
			continue
		}
		out[k] = v
	}
	return out
}

func (m *Memory) notifyLocked(bucket, doc string) {
	for sub, target := range m.subs {
		if target.bucket != bucket {
			continue
		}
		if target.doc != "" && target.doc != doc {
			continue
		}
		sub.push(m.snapshotLocked(target))
	}
}

func (m *Memory) snapshotLocked(target memTarget) Snapshot {
	b := m.buckets[target.bucket]

	if target.doc != "" {
		fields, ok := b[target.doc]
		if !ok {
			return Snapshot{}
		}
		return Snapshot{Docs: []Document{{ID: target.doc, Fields: copyFields(fields)}}}
	}

	docs := make([]Document, 0, len(b))
	for id, fields := range b {
		docs = append(docs, Document{ID: id, Fields: copyFields(fields)})
	}
	sort.SliceStable(docs, func(i, j int) bool {
		less := fieldLess(docs[i].Fields[target.order.Field], docs[j].Fields[target.order.Field])
		if target.order.Ascending {
			return less
		}
		return fieldLess(docs[j].Fields[target.order.Field], docs[i].Fields[target.order.Field])
	})
	return Snapshot{Docs: docs}
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func fieldLess(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av < bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	}
	return false
}
