// Package requestctx carries the acting person through request contexts.
package requestctx

import "context"

// Actor identifies who performs a request. PinClassroomID is set when the
// actor logged in with a classroom PIN and is confined to that classroom.
type Actor struct {
	PersonID       string
	PinClassroomID string
}

type actorContextKey struct{}

// WithActor stores the acting person in context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor stored in context, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok || actor.PersonID == "" {
		return Actor{}, false
	}
	return actor, true
}

// PersonIDFromContext returns the acting person id or an empty string.
func PersonIDFromContext(ctx context.Context) string {
	actor, _ := ActorFromContext(ctx)
	return actor.PersonID
}
