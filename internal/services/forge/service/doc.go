// Package service implements forge use cases.
//
// A use case loads records through storage ports, rehydrates the entity it
// acts on, runs the one transition the request asks for and, only when the
// transition succeeds, appends exactly one event through AppendAndEmit. The
// registered projectors update read tables inside that append, so the use
// case re-reads and returns the fresh record.
//
// Every failure is returned as an *apperrors.Error whose Code is the result
// tag (SESSION_NOT_ACTIVE, CANNOT_CLAIM, ...). Infrastructure failures are
// logged with their cause and surface only as INTERNAL_ERROR.
package service
