package consult

import (
	"sort"
	"sync"

	"MindEase/internal/model"
	"MindEase/internal/store"
)

// Merger maintains the locally consistent, ascending-by-send-time view
// of one session's messages. Every snapshot replaces the view wholesale;
// correctness under reordering and backfill beats incremental updates
// at chat scale.
//
// Each attachment gets a generation tag. Emissions carrying a stale tag
// are dropped, so a slow late snapshot from a previous session can never
// corrupt the view of the one selected after it.
type Merger struct {
	mu         sync.Mutex
	generation uint64
	sessionKey string
	view       []model.Message
}

func NewMerger() *Merger {
	return &Merger{}
}

// Attach points the merger at a session and returns the generation tag
// subscription callbacks must present.
func (m *Merger) Attach(sessionKey string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.sessionKey = sessionKey
	m.view = nil
	return m.generation
}

// Detach invalidates the current generation. Straggler emissions from
// the old subscription are discarded from here on.
func (m *Merger) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.sessionKey = ""
	m.view = nil
}

// Apply replaces the view with the snapshot's messages. Returns the new
// view and true when applied, or nil and false for a stale generation.
// The applied view is sorted ascending by sentAt with duplicate ids
// dropped, whatever interleaving the snapshots arrived in.
func (m *Merger) Apply(generation uint64, snap store.Snapshot) ([]model.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if generation != m.generation {
		return nil, false
	}

	msgs := make([]model.Message, 0, len(snap.Docs))
	seen := make(map[string]struct{}, len(snap.Docs))
	for _, doc := range snap.Docs {
		if _, dup := seen[doc.ID]; dup {
			continue
		}
		seen[doc.ID] = struct{}{}
		msgs = append(msgs, messageFromDocument(m.sessionKey, doc))
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})

	m.view = msgs
	return m.snapshotLocked(), true
}

// Current reports whether the tag still names the active generation.
func (m *Merger) Current(generation uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return generation == m.generation
}

// Messages returns a copy of the current view.
func (m *Merger) Messages() []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Merger) snapshotLocked() []model.Message {
	out := make([]model.Message, len(m.view))
	copy(out, m.view)
	return out
}
