package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/platform/requestctx"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// PinSessionDuration is how long a PIN login stays valid.
const PinSessionDuration = 4 * time.Hour

const pinAttemptsPerLength = 100

var (
	pinLengths = []int{4, 5, 6}
	pinPattern = regexp.MustCompile(`^[0-9]{4,6}$`)
)

// PinLogin is the result of a successful PIN login.
type PinLogin struct {
	Token       string
	PersonID    string
	ClassroomID string
	ExpiresAt   time.Time
}

// LoginWithPin authenticates a classroom member by classroom code and PIN.
// Any earlier PIN sessions of the person are replaced.
func (s *Service) LoginWithPin(ctx context.Context, classroomCode, pin string) (out PinLogin, err error) {
	const op = "LoginWithPin"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	room, err := s.stores.Classrooms.GetClassroomByCode(ctx, strings.ToUpper(strings.TrimSpace(classroomCode)))
	if err != nil {
		return PinLogin{}, s.lookup(op, err, apperrors.CodeInvalidCredentials, "invalid classroom code or PIN", nil)
	}
	candidates, err := s.stores.Pins.ListPinCandidates(ctx, room.ID)
	if err != nil {
		return PinLogin{}, s.internal(op, err)
	}
	personID := ""
	for _, c := range candidates {
		if s.hasher.Compare(c.PinHash, pin) {
			personID = c.PersonID
			break
		}
	}
	if personID == "" {
		return PinLogin{}, apperrors.New(apperrors.CodeInvalidCredentials, "invalid classroom code or PIN")
	}

	token, err := s.tokens.Token()
	if err != nil {
		return PinLogin{}, s.internal(op, err)
	}
	now := s.now()
	ps := storage.PinSession{
		Token:          token,
		PersonID:       personID,
		ClassroomID:    room.ID,
		ExpiresAt:      now.Add(PinSessionDuration),
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if _, err := s.stores.Pins.DeletePinSessionsForPerson(ctx, personID); err != nil {
		return PinLogin{}, s.internal(op, err)
	}
	if err := s.stores.Pins.PutPinSession(ctx, ps); err != nil {
		return PinLogin{}, s.internal(op, err)
	}
	if err := s.stores.Pins.TouchLastLogin(ctx, personID, now); err != nil {
		return PinLogin{}, s.internal(op, err)
	}
	return PinLogin{Token: token, PersonID: personID, ClassroomID: room.ID, ExpiresAt: ps.ExpiresAt}, nil
}

// LogoutPin ends a PIN session. Unknown tokens are ignored.
func (s *Service) LogoutPin(ctx context.Context, token string) error {
	if err := s.stores.Pins.DeletePinSession(ctx, token); err != nil {
		return s.internal("LogoutPin", err)
	}
	return nil
}

// ResolvePinSession turns a PIN session token into an actor confined to
// the session's classroom. Expired sessions are deleted.
func (s *Service) ResolvePinSession(ctx context.Context, token string) (requestctx.Actor, error) {
	const op = "ResolvePinSession"
	ps, err := s.stores.Pins.GetPinSession(ctx, token)
	if err != nil {
		return requestctx.Actor{}, s.lookup(op, err, apperrors.CodeNotAuthenticated, "PIN session not found", nil)
	}
	now := s.now()
	if !ps.ExpiresAt.After(now) {
		if err := s.stores.Pins.DeletePinSession(ctx, token); err != nil {
			return requestctx.Actor{}, s.internal(op, err)
		}
		return requestctx.Actor{}, apperrors.New(apperrors.CodePinSessionExpired, "PIN session expired")
	}
	ps.LastActivityAt = now
	if err := s.stores.Pins.PutPinSession(ctx, ps); err != nil {
		return requestctx.Actor{}, s.internal(op, err)
	}
	return requestctx.Actor{PersonID: ps.PersonID, PinClassroomID: ps.ClassroomID}, nil
}

// GeneratePin picks a PIN no other member of the classroom uses, stores its
// hash and returns the plain PIN.
func (s *Service) GeneratePin(ctx context.Context, classroomID, personID string) (pin string, err error) {
	const op = "GeneratePin"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	if _, err := s.activeMembership(ctx, op, classroomID, personID); err != nil {
		return "", err
	}
	return s.generatePin(ctx, op, classroomID, personID)
}

func (s *Service) generatePin(ctx context.Context, op, classroomID, personID string) (string, error) {
	candidates, err := s.stores.Pins.ListPinCandidates(ctx, classroomID)
	if err != nil {
		return "", s.internal(op, err)
	}
	others := make([]storage.PinCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.PersonID != personID {
			others = append(others, c)
		}
	}
	for _, length := range pinLengths {
		for range pinAttemptsPerLength {
			pin, err := s.tokens.Digits(length)
			if err != nil {
				return "", s.internal(op, err)
			}
			if s.pinTaken(others, pin) {
				continue
			}
			hash, err := s.hasher.Hash(pin)
			if err != nil {
				return "", s.internal(op, err)
			}
			if err := s.stores.Pins.SetPinHash(ctx, personID, hash); err != nil {
				return "", s.lookup(op, err, apperrors.CodeNotFound, "person not found",
					map[string]string{"personId": personID})
			}
			return pin, nil
		}
	}
	return "", apperrors.New(apperrors.CodeUnableToGenerate, "unable to generate a unique PIN")
}

// GenerateAllPins gives a PIN to every student of the classroom that has
// none and returns how many were generated.
func (s *Service) GenerateAllPins(ctx context.Context, classroomID string) (generated int, err error) {
	const op = "GenerateAllPins"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	students, err := s.stores.Pins.ListStudentsWithPins(ctx, classroomID)
	if err != nil {
		return 0, s.internal(op, err)
	}
	for _, st := range students {
		if st.HasPin {
			continue
		}
		if _, err := s.generatePin(ctx, op, classroomID, st.PersonID); err != nil {
			return generated, err
		}
		generated++
	}
	return generated, nil
}

// SetPin stores a chosen PIN. It fails with PIN_IN_USE when another member
// of the classroom already has it.
func (s *Service) SetPin(ctx context.Context, classroomID, personID, pin string) (err error) {
	const op = "SetPin"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	if _, err := s.activeMembership(ctx, op, classroomID, personID); err != nil {
		return err
	}
	if !pinPattern.MatchString(pin) {
		return invalid("pin", "PIN must be 4 to 6 digits")
	}
	candidates, err := s.stores.Pins.ListPinCandidates(ctx, classroomID)
	if err != nil {
		return s.internal(op, err)
	}
	for _, c := range candidates {
		if c.PersonID != personID && s.hasher.Compare(c.PinHash, pin) {
			return apperrors.New(apperrors.CodePinInUse, "PIN already in use in this classroom")
		}
	}
	hash, err := s.hasher.Hash(pin)
	if err != nil {
		return s.internal(op, err)
	}
	if err := s.stores.Pins.SetPinHash(ctx, personID, hash); err != nil {
		return s.lookup(op, err, apperrors.CodeNotFound, "person not found",
			map[string]string{"personId": personID})
	}
	return nil
}

// RemovePin clears a person's PIN and ends their PIN sessions.
func (s *Service) RemovePin(ctx context.Context, classroomID, personID string) (err error) {
	const op = "RemovePin"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	if _, err := s.activeMembership(ctx, op, classroomID, personID); err != nil {
		return err
	}
	if err := s.stores.Pins.SetPinHash(ctx, personID, ""); err != nil {
		return s.lookup(op, err, apperrors.CodeNotFound, "person not found",
			map[string]string{"personId": personID})
	}
	if _, err := s.stores.Pins.DeletePinSessionsForPerson(ctx, personID); err != nil {
		return s.internal(op, err)
	}
	return nil
}

// ListStudentsWithPins reports which students of a classroom have a PIN.
func (s *Service) ListStudentsWithPins(ctx context.Context, classroomID string) ([]storage.StudentPin, error) {
	out, err := s.stores.Pins.ListStudentsWithPins(ctx, classroomID)
	if err != nil {
		return nil, s.internal("ListStudentsWithPins", err)
	}
	return out, nil
}

func (s *Service) pinTaken(candidates []storage.PinCandidate, pin string) bool {
	for _, c := range candidates {
		if s.hasher.Compare(c.PinHash, pin) {
			return true
		}
	}
	return false
}
