package requestctx

import (
	"context"
	"testing"
)

func TestActorFromContextRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{PersonID: "person-42", PinClassroomID: "room-1"})
	got, ok := ActorFromContext(ctx)
	if !ok {
		t.Fatal("expected actor in context")
	}
	if got.PersonID != "person-42" || got.PinClassroomID != "room-1" {
		t.Fatalf("unexpected actor %+v", got)
	}
	if PersonIDFromContext(ctx) != "person-42" {
		t.Fatalf("PersonIDFromContext = %q", PersonIDFromContext(ctx))
	}
}

func TestActorFromContextEmpty(t *testing.T) {
	if _, ok := ActorFromContext(context.Background()); ok {
		t.Fatal("expected no actor")
	}
	if _, ok := ActorFromContext(WithActor(context.Background(), Actor{})); ok {
		t.Fatal("expected actor without person id to be ignored")
	}
}

func TestActorFromContextNil(t *testing.T) {
	if got := PersonIDFromContext(nil); got != "" {
		t.Fatalf("expected empty string for nil context, got %q", got)
	}
}

func TestWithActorNilContext(t *testing.T) {
	ctx := WithActor(nil, Actor{PersonID: "person-99"})
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	if got := PersonIDFromContext(ctx); got != "person-99" {
		t.Fatalf("PersonIDFromContext = %q, want %q", got, "person-99")
	}
}
