// Package projection turns the event log into the session, sign-in and help
// request read tables.
//
// Projectors run inside the append transaction, so a failing projector
// rolls back the event with it. Each projector owns one table, rehydrates
// its row, replays the entity transition the event records and writes the
// result back. A transition that is no longer legal (two helpers claiming
// the same request) surfaces as a domain conflict and aborts the append.
package projection
