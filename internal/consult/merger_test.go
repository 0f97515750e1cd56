package consult

import (
	"testing"
	"time"

	"MindEase/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgDoc(id string, sentAt time.Time, text string) store.Document {
	return store.Document{
		ID: id,
		Fields: map[string]any{
			"sender_id": "u1",
			"kind":      "text",
			"text":      text,
			"sent_at":   sentAt,
		},
	}
}

func TestMergerOrdersBySendTime(t *testing.T) {
	m := NewMerger()
	gen := m.Attach("u1_d1")

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	view, ok := m.Apply(gen, store.Snapshot{Docs: []store.Document{
		msgDoc("c", base.Add(2*time.Second), "third"),
		msgDoc("a", base, "first"),
		msgDoc("b", base.Add(time.Second), "second"),
	}})

	require.True(t, ok)
	require.Len(t, view, 3)
	assert.Equal(t, "first", view[0].Text)
	assert.Equal(t, "second", view[1].Text)
	assert.Equal(t, "third", view[2].Text)
	assert.Equal(t, "u1_d1", view[0].SessionKey)
}

func TestMergerDropsDuplicateIDs(t *testing.T) {
	m := NewMerger()
	gen := m.Attach("u1_d1")

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	view, ok := m.Apply(gen, store.Snapshot{Docs: []store.Document{
		msgDoc("a", base, "first"),
		msgDoc("a", base, "first again"),
		msgDoc("b", base.Add(time.Second), "second"),
	}})

	require.True(t, ok)
	require.Len(t, view, 2)
	assert.Equal(t, "first", view[0].Text)
}

func TestMergerRejectsStaleGeneration(t *testing.T) {
	m := NewMerger()
	oldGen := m.Attach("u1_d1")

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_, ok := m.Apply(oldGen, store.Snapshot{Docs: []store.Document{msgDoc("a", base, "old session")}})
	require.True(t, ok)

	newGen := m.Attach("u1_d2")
	assert.False(t, m.Current(oldGen))
	assert.True(t, m.Current(newGen))

	// A straggler emission from the old subscription must not corrupt
	// the freshly attached view.
	view, ok := m.Apply(oldGen, store.Snapshot{Docs: []store.Document{msgDoc("z", base, "straggler")}})
	assert.False(t, ok)
	assert.Nil(t, view)
	assert.Empty(t, m.Messages())
}

func TestMergerDetachClearsView(t *testing.T) {
	m := NewMerger()
	gen := m.Attach("u1_d1")

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_, ok := m.Apply(gen, store.Snapshot{Docs: []store.Document{msgDoc("a", base, "hi")}})
	require.True(t, ok)

	m.Detach()
	assert.Empty(t, m.Messages())
	assert.False(t, m.Current(gen))
}

func TestMergerEmptySnapshotClears(t *testing.T) {
	m := NewMerger()
	gen := m.Attach("u1_d1")

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_, ok := m.Apply(gen, store.Snapshot{Docs: []store.Document{msgDoc("a", base, "hi")}})
	require.True(t, ok)

	view, ok := m.Apply(gen, store.Snapshot{})
	require.True(t, ok)
	assert.Empty(t, view)
}

func TestMergerMessagesReturnsCopy(t *testing.T) {
	m := NewMerger()
	gen := m.Attach("u1_d1")

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_, ok := m.Apply(gen, store.Snapshot{Docs: []store.Document{msgDoc("a", base, "hi")}})
	require.True(t, ok)

	got := m.Messages()
	got[0].Text = "mutated"
	assert.Equal(t, "hi", m.Messages()[0].Text)
}
