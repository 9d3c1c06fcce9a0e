package projection

import (
	"context"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/help"
	"github.com/andysmith26/forge/internal/services/forge/domain/session"
	"github.com/andysmith26/forge/internal/services/forge/domain/signin"
)

// SessionStore is the session table as seen by its projector.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (session.Record, error)
	// FindActiveSession returns the classroom's active session, or
	// storage.ErrNotFound.
	FindActiveSession(ctx context.Context, classroomID string) (session.Record, error)
	// PutSessionLifecycle writes status, actualStartAt and actualEndAt.
	PutSessionLifecycle(ctx context.Context, s session.Record) error
	// ResetSessionLifecycles returns every session to scheduled with no
	// actual times.
	ResetSessionLifecycles(ctx context.Context) error
}

// SignInStore is the sign-in table as seen by its projector.
type SignInStore interface {
	GetSignIn(ctx context.Context, id string) (signin.Record, error)
	GetActiveSignIn(ctx context.Context, sessionID, personID string) (signin.Record, error)
	PutSignIn(ctx context.Context, s signin.Record) error
	// SignOutAll closes every open sign-in of a session.
	SignOutAll(ctx context.Context, sessionID string, typ signin.SignoutType, at time.Time) (int, error)
	ClearSignIns(ctx context.Context) error
}

// HelpRequestStore is the help request table as seen by its projector.
type HelpRequestStore interface {
	GetHelpRequest(ctx context.Context, id string) (help.Record, error)
	FindOpenHelpRequest(ctx context.Context, sessionID, requesterID string) (help.Record, error)
	PutHelpRequest(ctx context.Context, r help.Record) error
	ClearHelpRequests(ctx context.Context) error
}

// Stores bundles the tables projectors write, bound to one transaction.
type Stores struct {
	Sessions     SessionStore
	SignIns      SignInStore
	HelpRequests HelpRequestStore
}
