// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu          sync.RWMutex
	transcripts map[string]*Transcript
	saved       chan *Transcript
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		transcripts: make(map[string]*Transcript),
		saved:       make(chan *Transcript, 64),
	}
}

// Saved delivers a copy of every transcript as it is saved.
func (m *MockStore) Saved() <-chan *Transcript {
	return m.saved
}

// SaveTranscript stores a copy of t.
func (m *MockStore) SaveTranscript(ctx context.Context, t *Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	// Make a copy to avoid external modification
	c := *t
	c.Payload = append([]byte(nil), t.Payload...)
	m.transcripts[c.ID] = &c

	select {
	case m.saved <- &c:
	default:
	}
	return nil
}

// GetTranscript retrieves a transcript by ID.
func (m *MockStore) GetTranscript(ctx context.Context, id string) (*Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transcripts[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *t
	return &c, nil
}

// ListTranscripts returns transcripts newest first without payloads.
func (m *MockStore) ListTranscripts(ctx context.Context, limit int) ([]*Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Transcript, 0, len(m.transcripts))
	for _, t := range m.transcripts {
		c := *t
		c.Payload = nil
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteTranscript removes a transcript.
func (m *MockStore) DeleteTranscript(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transcripts[id]; !ok {
		return ErrNotFound
	}
	delete(m.transcripts, id)
	return nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
