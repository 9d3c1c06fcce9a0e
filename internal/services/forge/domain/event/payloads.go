package event

import (
	"encoding/json"
	"fmt"
)

type SessionStartedPayload struct {
	SessionID   string `json:"sessionId"`
	ClassroomID string `json:"classroomId"`
	StartedBy   string `json:"startedBy"`
	ByTeacher   bool   `json:"byTeacher"`
}

type SessionEndedPayload struct {
	SessionID   string `json:"sessionId"`
	ClassroomID string `json:"classroomId"`
	EndedBy     string `json:"endedBy"`
	ByTeacher   bool   `json:"byTeacher"`
}

type SessionCancelledPayload struct {
	SessionID   string `json:"sessionId"`
	ClassroomID string `json:"classroomId"`
	CancelledBy string `json:"cancelledBy"`
	ByTeacher   bool   `json:"byTeacher"`
}

type PersonSignedInPayload struct {
	SignInID     string `json:"signInId"`
	SessionID    string `json:"sessionId"`
	ClassroomID  string `json:"classroomId"`
	PersonID     string `json:"personId"`
	SignedInBy   string `json:"signedInBy"`
	IsSelfSignIn bool   `json:"isSelfSignIn"`
	ByTeacher    bool   `json:"byTeacher"`
}

type PersonSignedOutPayload struct {
	SignInID    string `json:"signInId"`
	SessionID   string `json:"sessionId"`
	ClassroomID string `json:"classroomId"`
	PersonID    string `json:"personId"`
	SignedOutBy string `json:"signedOutBy,omitempty"`
	SignoutType string `json:"signoutType"`
	ByTeacher   bool   `json:"byTeacher"`
}

type HelpRequestedPayload struct {
	RequestID   string `json:"requestId"`
	SessionID   string `json:"sessionId"`
	ClassroomID string `json:"classroomId"`
	RequesterID string `json:"requesterId"`
	Urgency     string `json:"urgency"`
	CategoryID  string `json:"categoryId,omitempty"`
	Description string `json:"description"`
	WhatITried  string `json:"whatITried"`
	ByTeacher   bool   `json:"byTeacher"`
}

// HelpRef identifies the request in every follow-up help event.
type HelpRef struct {
	RequestID   string `json:"requestId"`
	SessionID   string `json:"sessionId"`
	ClassroomID string `json:"classroomId"`
	RequesterID string `json:"requesterId"`
	ByTeacher   bool   `json:"byTeacher"`
}

type HelpClaimedPayload struct {
	HelpRef
	ClaimedByID string `json:"claimedById"`
}

type HelpUnclaimedPayload struct {
	HelpRef
	UnclaimedByID string `json:"unclaimedById"`
}

type HelpResolvedPayload struct {
	HelpRef
	ResolverID      string `json:"resolverId"`
	ResolutionNotes string `json:"resolutionNotes,omitempty"`
}

type HelpCancelledPayload struct {
	HelpRef
	CancelledBy string `json:"cancelledBy"`
	Reason      string `json:"reason,omitempty"`
}

type ProfileUpdatedPayload struct {
	PersonID      string   `json:"personId"`
	SchoolID      string   `json:"schoolId"`
	ChangedFields []string `json:"changedFields"`
}

// Encode marshals a payload for an AppendInput.
func Encode(payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

// Decode unmarshals the payload of e into T.
func Decode[T any](e Event) (T, error) {
	var out T
	if err := json.Unmarshal(e.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return out, nil
}
