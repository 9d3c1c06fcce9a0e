// Package realtime fans committed events out to subscribers.
//
// Each event maps to one or more channels named "<kind>:<scope>:<id>".
// Emitters publish to Redis, write polling rows to the notification table,
// or both. Emission always happens after the append commits and never
// fails the append.
package realtime
