package projection

import (
	"context"
	"errors"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/signin"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// SignInProjector owns the sign-in table. Ending a session closes every
// open sign-in in it.
type SignInProjector struct{}

func (SignInProjector) Name() string { return "SignInProjector" }

func (SignInProjector) HandledEvents() []event.Type {
	return []event.Type{event.TypePersonSignedIn, event.TypePersonSignedOut, event.TypeSessionEnded}
}

func (SignInProjector) Apply(ctx context.Context, stores Stores, evt event.Event) error {
	switch evt.Type {
	case event.TypePersonSignedIn:
		p, err := event.Decode[event.PersonSignedInPayload](evt)
		if err != nil {
			return err
		}
		if !Replaying(ctx) {
			_, err = stores.SignIns.GetActiveSignIn(ctx, p.SessionID, p.PersonID)
			if err == nil {
				return domainerr.Conflict("Person %s is already signed in", p.PersonID)
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}
		s, err := signin.New(p.SignInID, p.SessionID, p.PersonID, p.SignedInBy, evt.CreatedAt)
		if err != nil {
			return err
		}
		return stores.SignIns.PutSignIn(ctx, s.Record())

	case event.TypePersonSignedOut:
		p, err := event.Decode[event.PersonSignedOutPayload](evt)
		if err != nil {
			return err
		}
		rec, err := stores.SignIns.GetSignIn(ctx, p.SignInID)
		if err != nil {
			if Replaying(ctx) && errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			return err
		}
		if Replaying(ctx) {
			at := evt.CreatedAt
			rec.SignedOutAt, rec.SignedOutByID, rec.SignoutType = &at, p.SignedOutBy, signin.SignoutType(p.SignoutType)
			return stores.SignIns.PutSignIn(ctx, rec)
		}
		next, err := signin.FromRecord(rec).SignOut(p.SignedOutBy, signin.SignoutType(p.SignoutType), evt.CreatedAt)
		if err != nil {
			return err
		}
		return stores.SignIns.PutSignIn(ctx, next.Record())

	case event.TypeSessionEnded:
		p, err := event.Decode[event.SessionEndedPayload](evt)
		if err != nil {
			return err
		}
		_, err = stores.SignIns.SignOutAll(ctx, p.SessionID, signin.SignoutSessionEnd, evt.CreatedAt)
		return err
	}
	return nil
}

func (SignInProjector) Clear(ctx context.Context, stores Stores) error {
	return stores.SignIns.ClearSignIns(ctx)
}
