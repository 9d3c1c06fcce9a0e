package service

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/platform/id"
	"github.com/andysmith26/forge/internal/platform/logging"
	platformotel "github.com/andysmith26/forge/internal/platform/otel"
	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
	"github.com/andysmith26/forge/internal/services/forge/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/andysmith26/forge/internal/services/forge/service"

// Clock returns the current time.
type Clock func() time.Time

// IDGenerator returns a new unique identifier.
type IDGenerator func() (string, error)

// HashService hashes and verifies secrets such as PINs.
type HashService interface {
	Hash(secret string) (string, error)
	Compare(hash, secret string) bool
}

// TokenGenerator produces random session tokens and numeric codes.
type TokenGenerator interface {
	Token() (string, error)
	Digits(length int) (string, error)
}

// Stores groups the storage ports used by use cases.
type Stores struct {
	Events        storage.EventStore
	Sessions      storage.SessionStore
	Presence      storage.PresenceStore
	Help          storage.HelpStore
	Classrooms    storage.ClassroomStore
	People        storage.PersonStore
	Ninja         storage.NinjaStore
	Pins          storage.PinStore
	Notifications storage.NotificationStore
}

// StoresFrom binds every port to a single backend.
func StoresFrom(s storage.Store) Stores {
	return Stores{
		Events:        s,
		Sessions:      s,
		Presence:      s,
		Help:          s,
		Classrooms:    s,
		People:        s,
		Ninja:         s,
		Pins:          s,
		Notifications: s,
	}
}

func (s Stores) validate() error {
	switch {
	case s.Events == nil:
		return errors.New("event store is required")
	case s.Sessions == nil:
		return errors.New("session store is required")
	case s.Presence == nil:
		return errors.New("presence store is required")
	case s.Help == nil:
		return errors.New("help store is required")
	case s.Classrooms == nil:
		return errors.New("classroom store is required")
	case s.People == nil:
		return errors.New("person store is required")
	case s.Ninja == nil:
		return errors.New("ninja store is required")
	case s.Pins == nil:
		return errors.New("pin store is required")
	case s.Notifications == nil:
		return errors.New("notification store is required")
	}
	return nil
}

// Deps are the collaborators a Service is built from. Zero-valued
// optional fields fall back to production defaults.
type Deps struct {
	Stores Stores
	Clock  Clock
	IDs    IDGenerator
	Hasher HashService
	Tokens TokenGenerator
	Logger *zap.Logger
	Tracer trace.Tracer
}

// Service runs forge use cases against injected ports.
type Service struct {
	stores Stores
	clock  Clock
	newID  IDGenerator
	hasher HashService
	tokens TokenGenerator
	logger *zap.Logger
	tracer trace.Tracer
}

// New validates deps and returns a Service.
func New(deps Deps) (*Service, error) {
	if err := deps.Stores.validate(); err != nil {
		return nil, err
	}
	s := &Service{
		stores: deps.Stores,
		clock:  deps.Clock,
		newID:  deps.IDs,
		hasher: deps.Hasher,
		tokens: deps.Tokens,
		logger: logging.OrNop(deps.Logger),
		tracer: deps.Tracer,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = id.NewID
	}
	if s.hasher == nil {
		s.hasher = BcryptHasher{}
	}
	if s.tokens == nil {
		s.tokens = RandomTokens{}
	}
	if s.tracer == nil {
		s.tracer = platformotel.Tracer(tracerName)
	}
	return s, nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// begin opens a span for a use case. The returned func ends it and tags
// the span with the result code of *errp.
func (s *Service) begin(ctx context.Context, op string) (context.Context, func(*error)) {
	ctx, span := s.tracer.Start(ctx, "forge.service."+op)
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			code := apperrors.GetCode(*errp)
			span.SetAttributes(attribute.String("forge.result", string(code)))
			if code == apperrors.CodeInternal || code == apperrors.CodeUnknown {
				span.RecordError(*errp)
				span.SetStatus(codes.Error, string(code))
			}
		}
		span.End()
	}
}

// internal logs cause and hides it behind INTERNAL_ERROR.
func (s *Service) internal(op string, cause error) error {
	s.logger.Error("use case failed",
		zap.String("operation", op),
		zap.Error(cause),
	)
	return apperrors.Wrap(apperrors.CodeInternal, op+" failed", cause)
}

// lookup maps a storage miss to code and anything else to INTERNAL_ERROR.
func (s *Service) lookup(op string, err error, code apperrors.Code, message string, metadata map[string]string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.WrapWithMetadata(code, message, metadata, err)
	}
	return s.internal(op, err)
}

// appendFailed classifies an append error. A conflict raised by a
// projector means a concurrent request won the race; it is reported with
// the same code as the pre-check.
func (s *Service) appendFailed(op string, err error, conflict apperrors.Code, message string) error {
	if conflict != "" && errors.Is(err, domainerr.ErrConflict) {
		return apperrors.Wrap(conflict, message, err)
	}
	return s.internal(op, err)
}

// fromDomain converts an entity error to its coded form. Unknown errors
// become INTERNAL_ERROR.
func (s *Service) fromDomain(op string, err error) error {
	var coded *apperrors.Error
	if errors.As(err, &coded) && coded.Code != apperrors.CodeInternal {
		return err
	}
	kind, ok := domainerr.KindOf(err)
	if !ok {
		return s.internal(op, err)
	}
	switch kind {
	case domainerr.KindValidation:
		return validationError(err)
	case domainerr.KindFeatureDisabled:
		var de *domainerr.Error
		errors.As(err, &de)
		return apperrors.WrapWithMetadata(apperrors.CodeFeatureDisabled, err.Error(),
			map[string]string{"feature": de.Feature, "classroomId": de.ClassroomID}, err)
	case domainerr.KindConflict:
		return apperrors.Wrap(apperrors.CodeInvalidState, err.Error(), err)
	case domainerr.KindNotFound:
		return apperrors.Wrap(apperrors.CodeNotFound, err.Error(), err)
	case domainerr.KindForbidden, domainerr.KindNotAuthorized:
		return apperrors.Wrap(apperrors.CodeNotAuthorized, err.Error(), err)
	}
	return s.internal(op, err)
}

// validationError reports field issues in metadata keyed by path.
func validationError(err error) error {
	issues := domainerr.IssuesOf(err)
	metadata := make(map[string]string, len(issues))
	for _, issue := range issues {
		metadata[issue.Path] = issue.Message
	}
	return apperrors.WrapWithMetadata(apperrors.CodeValidation, err.Error(), metadata, err)
}

func invalid(path, message string) error {
	return apperrors.WithMetadata(apperrors.CodeValidation, message, map[string]string{path: message})
}
