package projection

import "context"

type replayKey struct{}

// WithReplay marks ctx as belonging to a rebuild. Projectors then write
// each event's target state without re-checking transitions, and skip
// events whose row is gone because retention removed its earlier history.
func WithReplay(ctx context.Context) context.Context {
	return context.WithValue(ctx, replayKey{}, true)
}

// Replaying reports whether ctx was marked by WithReplay.
func Replaying(ctx context.Context) bool {
	on, _ := ctx.Value(replayKey{}).(bool)
	return on
}
