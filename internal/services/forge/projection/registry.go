package projection

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/andysmith26/forge/internal/services/forge/domain/event"
)

// Projector maintains one read table from events.
type Projector interface {
	Name() string
	HandledEvents() []event.Type
	Apply(ctx context.Context, stores Stores, evt event.Event) error
	// Clear removes everything the projector derived from events.
	Clear(ctx context.Context, stores Stores) error
}

// Registry dispatches events to projectors in registration order.
type Registry struct {
	projectors []Projector
}

// NewRegistry returns a registry with the given projectors registered in order.
func NewRegistry(projectors ...Projector) (*Registry, error) {
	r := &Registry{}
	for _, p := range projectors {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// CoreRegistry registers the session, sign-in and help request projectors
// in dependency order.
func CoreRegistry() *Registry {
	r, err := NewRegistry(SessionProjector{}, SignInProjector{}, HelpRequestProjector{})
	if err != nil {
		panic(err)
	}
	return r
}

// Register appends a projector. Names must be unique.
func (r *Registry) Register(p Projector) error {
	if p == nil {
		return errors.New("projector is required")
	}
	for _, existing := range r.projectors {
		if existing.Name() == p.Name() {
			return fmt.Errorf("projector %s already registered", p.Name())
		}
	}
	r.projectors = append(r.projectors, p)
	return nil
}

// Apply runs every projector that handles evt.Type, stopping at the first error.
func (r *Registry) Apply(ctx context.Context, stores Stores, evt event.Event) error {
	for _, p := range r.projectors {
		if !slices.Contains(p.HandledEvents(), evt.Type) {
			continue
		}
		if err := p.Apply(ctx, stores, evt); err != nil {
			return fmt.Errorf("%s apply %s: %w", p.Name(), evt.Type, err)
		}
	}
	return nil
}

// ClearAll clears projectors in reverse registration order.
func (r *Registry) ClearAll(ctx context.Context, stores Stores) error {
	for i := len(r.projectors) - 1; i >= 0; i-- {
		p := r.projectors[i]
		if err := p.Clear(ctx, stores); err != nil {
			return fmt.Errorf("%s clear: %w", p.Name(), err)
		}
	}
	return nil
}

// Projectors returns the registered projectors in order.
func (r *Registry) Projectors() []Projector {
	return slices.Clone(r.projectors)
}

// Rebuild clears every projection and replays events through Apply in
// replay mode. The caller supplies stores bound to a single transaction.
func (r *Registry) Rebuild(ctx context.Context, stores Stores, events []event.Event) (int, error) {
	ctx = WithReplay(ctx)
	if err := r.ClearAll(ctx, stores); err != nil {
		return 0, err
	}
	for i, evt := range events {
		if err := r.Apply(ctx, stores, evt); err != nil {
			return i, fmt.Errorf("replay event %s: %w", evt.ID, err)
		}
	}
	return len(events), nil
}
