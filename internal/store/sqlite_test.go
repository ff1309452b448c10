// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers transcript save, lookup, listing order/limits, and deletion

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestSaveAndGetTranscript(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tr := &Transcript{
		SessionID:    "sess-1",
		AgentName:    "Agentforce",
		Reason:       ReasonEnd,
		MessageCount: 2,
		Payload:      []byte(`[{"text":"hi"},{"text":"hello"}]`),
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := store.SaveTranscript(ctx, tr); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}
	if tr.ID == "" {
		t.Fatal("SaveTranscript did not assign an ID")
	}

	got, err := store.GetTranscript(ctx, tr.ID)
	if err != nil {
		t.Fatalf("GetTranscript failed: %v", err)
	}
	if got.SessionID != "sess-1" || got.AgentName != "Agentforce" || got.Reason != ReasonEnd {
		t.Errorf("GetTranscript returned %+v", got)
	}
	if got.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", got.MessageCount)
	}
	if string(got.Payload) != string(tr.Payload) {
		t.Errorf("Payload = %s", got.Payload)
	}
	if !got.CreatedAt.Equal(tr.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, tr.CreatedAt)
	}
}

func TestGetTranscript_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetTranscript(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListTranscripts_OrderAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		tr := &Transcript{
			Reason:       ReasonNewChat,
			MessageCount: i,
			Payload:      []byte("[]"),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveTranscript(ctx, tr); err != nil {
			t.Fatalf("SaveTranscript failed: %v", err)
		}
	}

	list, err := store.ListTranscripts(ctx, 3)
	if err != nil {
		t.Fatalf("ListTranscripts failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 transcripts, got %d", len(list))
	}
	for i, want := range []int{4, 3, 2} {
		if list[i].MessageCount != want {
			t.Errorf("list[%d].MessageCount = %d, want %d", i, list[i].MessageCount, want)
		}
		if list[i].Payload != nil {
			t.Errorf("list[%d] should not carry a payload", i)
		}
	}
}

func TestDeleteTranscript(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tr := &Transcript{Reason: ReasonEnd, Payload: []byte("[]")}
	if err := store.SaveTranscript(ctx, tr); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}

	if err := store.DeleteTranscript(ctx, tr.ID); err != nil {
		t.Fatalf("DeleteTranscript failed: %v", err)
	}
	if err := store.DeleteTranscript(ctx, tr.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}
