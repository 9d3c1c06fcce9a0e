// Package id generates URL-safe identifiers for aggregates and events.
//
// Identifiers are UUIDv4 bytes encoded as lowercase base32 (RFC 4648)
// with no padding. The resulting strings are 26 characters long and safe
// for URLs, channel names and file paths.
package id
