// ABOUTME: Tests for the message log
// ABOUTME: Covers id uniqueness, ordering under removal, and update rules

package widget

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_AppendAssignsUniqueIDs(t *testing.T) {
	l := NewLog()

	a := l.Append(Message{Text: "a"})
	b := l.Append(Message{Text: "b", ID: a.ID})
	c := l.Append(Message{Text: "c", ID: "fixed"})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID, "colliding id must be replaced")
	assert.Equal(t, "fixed", c.ID)
}

func TestLog_IDsStayUniqueAcrossRemoval(t *testing.T) {
	l := NewLog()
	var order []string

	for i := 0; i < 50; i++ {
		kind := KindChat
		if i%3 == 0 {
			kind = KindStatus
		}
		m := l.Append(Message{Kind: kind, Text: fmt.Sprint(i)})
		if kind == KindChat {
			order = append(order, m.Text)
		}
		if i%10 == 9 {
			l.RemoveWhere(OfKind(KindStatus))
		}
	}
	l.RemoveWhere(OfKind(KindStatus))

	seen := map[string]bool{}
	var got []string
	for _, m := range l.Snapshot() {
		require.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
		got = append(got, m.Text)
	}
	assert.Equal(t, order, got)
}

func TestLog_RemovedIDsAreNotReused(t *testing.T) {
	l := NewLog()
	m := l.Append(Message{ID: "x"})
	l.RemoveWhere(WithID(m.ID))

	again := l.Append(Message{ID: "x"})
	assert.NotEqual(t, "x", again.ID)
}

func TestLog_RemoveWhereCountsAndPreservesOldSnapshot(t *testing.T) {
	l := NewLog()
	l.Append(Message{Kind: KindTyping})
	l.Append(Message{Kind: KindChat, Text: "kept"})
	l.Append(Message{Kind: KindTyping})

	before := l.Snapshot()
	assert.Equal(t, 2, l.RemoveWhere(OfKind(KindTyping)))
	assert.Len(t, before, 3)
	assert.Equal(t, 1, l.Len())

	m, ok := l.FindFirst(OfKind(KindChat))
	require.True(t, ok)
	assert.Equal(t, "kept", m.Text)

	_, ok = l.FindFirst(OfKind(KindTyping))
	assert.False(t, ok)
}

func TestLog_UpdateNeverRevertsTyping(t *testing.T) {
	l := NewLog()
	m := l.Append(Message{Text: "done"})

	ok := l.Update(m.ID, func(m *Message) {
		m.IsTyping = true
		m.ID = "changed"
		m.Text = "edited"
	})
	require.True(t, ok)

	got, ok := l.Get(m.ID)
	require.True(t, ok)
	assert.False(t, got.IsTyping)
	assert.Equal(t, "edited", got.Text)

	assert.False(t, l.Update("missing", func(*Message) {}))
}

func TestLog_UpdateClearsTyping(t *testing.T) {
	l := NewLog()
	m := l.Append(Message{IsTyping: true})
	before := l.Snapshot()

	l.Update(m.ID, func(m *Message) { m.IsTyping = false })

	got, _ := l.Get(m.ID)
	assert.False(t, got.IsTyping)
	assert.True(t, before[0].IsTyping, "earlier snapshot must not change")
}

func TestLog_ResetForgetsIDs(t *testing.T) {
	l := NewLog()
	l.Append(Message{ID: "x"})
	l.Reset()

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, "x", l.Append(Message{ID: "x"}).ID)
	assert.Equal(t, 1, l.Count(WithID("x")))
}
