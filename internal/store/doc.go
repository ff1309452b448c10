// Package store provides persistent storage for chat transcripts using SQLite.
//
// # Architecture
//
// Store is the interface the widget and the CLI depend on. SQLiteStore is the
// production implementation built on the pure-Go modernc.org/sqlite driver;
// MockStore is an in-memory implementation for tests.
//
// # Data Model
//
// A Transcript is one finished chat. The message log is stored verbatim as a
// JSON payload so the CLI can render it later without a schema for messages.
// Transcripts are written when the user ends a chat or starts a new one.
//
// # Database
//
// The database runs in WAL mode and the schema is created on open. Parent
// directories of the database path are created as needed.
package store
