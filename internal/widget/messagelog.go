// ABOUTME: Ordered, append-only message log with filtered removal
// ABOUTME: Guarantees unique ids for the lifetime of one chat and never reverts typing state

package widget

import (
	"github.com/google/uuid"
)

// Log is the ordered sequence of chat messages. It is owned by the widget
// event loop and is not safe for concurrent use.
type Log struct {
	msgs  []Message
	seen  map[string]struct{} // every id handed out since the last Reset
	newID func() string
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{
		seen:  make(map[string]struct{}),
		newID: uuid.NewString,
	}
}

// Append adds m at the tail. An empty or already used id is replaced with a
// fresh one. The stored message is returned.
func (l *Log) Append(m Message) Message {
	if _, dup := l.seen[m.ID]; m.ID == "" || dup {
		m.ID = l.freshID()
	}
	l.seen[m.ID] = struct{}{}
	l.msgs = append(l.msgs, m)
	return m
}

func (l *Log) freshID() string {
	for {
		id := l.newID()
		if _, dup := l.seen[id]; !dup && id != "" {
			return id
		}
	}
}

// RemoveWhere rebuilds the log without the messages matching pred and
// returns how many were removed. The previous backing slice is left intact
// so earlier snapshots stay consistent.
func (l *Log) RemoveWhere(pred func(Message) bool) int {
	kept := make([]Message, 0, len(l.msgs))
	for _, m := range l.msgs {
		if !pred(m) {
			kept = append(kept, m)
		}
	}
	removed := len(l.msgs) - len(kept)
	l.msgs = kept
	return removed
}

// FindFirst returns the first message matching pred.
func (l *Log) FindFirst(pred func(Message) bool) (Message, bool) {
	for _, m := range l.msgs {
		if pred(m) {
			return m, true
		}
	}
	return Message{}, false
}

// Get returns the message with id.
func (l *Log) Get(id string) (Message, bool) {
	return l.FindFirst(WithID(id))
}

// Update applies fn to the message with id and reports whether it existed.
// The id cannot be changed, and a message that has stopped typing stays
// that way.
func (l *Log) Update(id string, fn func(*Message)) bool {
	for i := range l.msgs {
		if l.msgs[i].ID != id {
			continue
		}
		updated := l.msgs[i]
		fn(&updated)
		updated.ID = id
		if !l.msgs[i].IsTyping {
			updated.IsTyping = false
		}
		next := make([]Message, len(l.msgs))
		copy(next, l.msgs)
		next[i] = updated
		l.msgs = next
		return true
	}
	return false
}

// Count returns the number of messages matching pred.
func (l *Log) Count(pred func(Message) bool) int {
	n := 0
	for _, m := range l.msgs {
		if pred(m) {
			n++
		}
	}
	return n
}

// Len returns the number of messages.
func (l *Log) Len() int {
	return len(l.msgs)
}

// Snapshot returns a copy of the messages in order.
func (l *Log) Snapshot() []Message {
	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Reset empties the log and forgets issued ids, starting a new chat.
func (l *Log) Reset() {
	l.msgs = nil
	l.seen = make(map[string]struct{})
}
