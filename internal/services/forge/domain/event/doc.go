// Package event defines the stored event envelope, the closed set of event
// types and their payloads.
//
// Events are the system of record. Read tables are derived from them by
// projectors and can be rebuilt at any time by replaying the log. Every
// payload carries everything a projector needs, so projectors never read
// tables owned by other projectors.
package event
