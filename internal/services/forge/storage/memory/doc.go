// Package memory is an in-process forge backend for tests and local tools.
//
// It implements the same ports as the SQLite store. A single mutex guards
// every table; Append applies projections against the live tables and
// restores the previous projection state when any projector fails.
package memory
