// Package storage defines persistence interfaces for the forge service.
//
// It covers the event log, the session, presence and help read tables that
// projectors maintain, and the plain CRUD tables for classrooms, people,
// ninja domains, PIN sessions and realtime notifications. Implementations
// (SQLite, in-memory) live in subpackages.
//
// Common error types:
//   - ErrNotFound: requested record is missing
package storage
