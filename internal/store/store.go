// ABOUTME: Store interface and data types for coven-chat transcript persistence
// ABOUTME: Defines the Transcript struct and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Reasons a transcript was saved
const (
	ReasonEnd     = "end"      // the user ended the chat
	ReasonNewChat = "new_chat" // the user started over
)

// Transcript is one finished chat, stored as the serialized message log.
type Transcript struct {
	ID           string
	SessionID    string // backend session id, empty if never initialized
	AgentName    string
	Reason       string
	MessageCount int
	Payload      []byte // JSON array of messages
	CreatedAt    time.Time
}

// Store defines the interface for transcript persistence
type Store interface {
	// SaveTranscript stores a transcript. CreatedAt defaults to now.
	SaveTranscript(ctx context.Context, t *Transcript) error

	// GetTranscript retrieves a transcript by ID. Returns ErrNotFound if missing.
	GetTranscript(ctx context.Context, id string) (*Transcript, error)

	// ListTranscripts returns the most recent transcripts, newest first,
	// without their payloads.
	ListTranscripts(ctx context.Context, limit int) ([]*Transcript, error)

	// DeleteTranscript removes a transcript. Returns ErrNotFound if missing.
	DeleteTranscript(ctx context.Context, id string) error

	// Close releases database resources
	Close() error
}
