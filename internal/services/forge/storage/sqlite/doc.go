// Package sqlite is the production forge backend.
//
// One database file holds the append-only event log, the projection tables
// maintained by projectors, and the repository tables written directly by
// use cases (classrooms, people, memberships, categories, ninja domains,
// PIN sessions and realtime notifications).
//
// Append runs every registered projector inside the insert transaction, so
// a projector error rolls the event back. Appends are serialized by a
// store-wide write lock; repository writes are single statements and rely
// on the SQLite busy timeout.
package sqlite
