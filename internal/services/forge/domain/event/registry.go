package event

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTypeUnknown indicates an event type without a definition.
	ErrTypeUnknown = errors.New("event type is not registered")
	// ErrSchoolIDRequired indicates an event without a school.
	ErrSchoolIDRequired = errors.New("school id is required")
	// ErrEntityIDRequired indicates an event without an entity id.
	ErrEntityIDRequired = errors.New("entity id is required")
	// ErrEntityTypeMismatch indicates an entity type other than the definition's.
	ErrEntityTypeMismatch = errors.New("entity type does not match event type")
	// ErrPayloadInvalid indicates a payload that is not a JSON object.
	ErrPayloadInvalid = errors.New("payload must be a JSON object")
)

// Definition binds an event type to the aggregate it is recorded against.
type Definition struct {
	Type       Type
	EntityType EntityType
}

// Registry holds the event definitions accepted for append.
type Registry struct {
	defs  map[Type]Definition
	order []Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[Type]Definition)}
}

// CoreRegistry returns a registry with every built-in event type.
func CoreRegistry() *Registry {
	r := NewRegistry()
	for _, def := range []Definition{
		{Type: TypeSessionStarted, EntityType: EntitySession},
		{Type: TypeSessionEnded, EntityType: EntitySession},
		{Type: TypeSessionCancelled, EntityType: EntitySession},
		{Type: TypePersonSignedIn, EntityType: EntitySignIn},
		{Type: TypePersonSignedOut, EntityType: EntitySignIn},
		{Type: TypeHelpRequested, EntityType: EntityHelpRequest},
		{Type: TypeHelpClaimed, EntityType: EntityHelpRequest},
		{Type: TypeHelpUnclaimed, EntityType: EntityHelpRequest},
		{Type: TypeHelpResolved, EntityType: EntityHelpRequest},
		{Type: TypeHelpCancelled, EntityType: EntityHelpRequest},
		{Type: TypeProfileUpdated, EntityType: EntityPerson},
	} {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a definition. Types must be unique.
func (r *Registry) Register(def Definition) error {
	if strings.TrimSpace(string(def.Type)) == "" {
		return errors.New("event type is required")
	}
	if _, ok := r.defs[def.Type]; ok {
		return fmt.Errorf("event type %s already registered", def.Type)
	}
	r.defs[def.Type] = def
	r.order = append(r.order, def.Type)
	return nil
}

// Types lists registered types in registration order.
func (r *Registry) Types() []Type {
	return append([]Type(nil), r.order...)
}

// ValidateForAppend checks addressing and payload shape before persistence.
func (r *Registry) ValidateForAppend(in AppendInput) error {
	def, ok := r.defs[in.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTypeUnknown, in.Type)
	}
	if strings.TrimSpace(in.SchoolID) == "" {
		return ErrSchoolIDRequired
	}
	if strings.TrimSpace(in.EntityID) == "" {
		return ErrEntityIDRequired
	}
	if in.EntityType != def.EntityType {
		return fmt.Errorf("%w: %s is recorded against %s, got %s", ErrEntityTypeMismatch, in.Type, def.EntityType, in.EntityType)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(in.Payload), []byte("{")) {
		return ErrPayloadInvalid
	}
	return nil
}
