// Package errors provides structured error codes shared by use cases,
// storage adapters and transports.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"
	// CodeInternal hides infrastructure failures from callers.
	CodeInternal Code = "INTERNAL_ERROR"
	// CodeValidation reports rejected input with field issues in metadata.
	CodeValidation Code = "VALIDATION_ERROR"

	// Storage errors
	CodeNotFound            Code = "NOT_FOUND"
	CodeActiveSessionExists Code = "ACTIVE_SESSION_EXISTS"

	// Authorization errors
	CodeNotAuthenticated Code = "NOT_AUTHENTICATED"
	CodeNotMember        Code = "NOT_MEMBER"
	CodeNotTeacher       Code = "NOT_TEACHER"
	CodeNotAuthorized    Code = "NOT_AUTHORIZED"
	CodeFeatureDisabled  Code = "FEATURE_DISABLED"

	// Lookup errors
	CodeSessionNotFound   Code = "SESSION_NOT_FOUND"
	CodeClassroomNotFound Code = "CLASSROOM_NOT_FOUND"
	CodeDomainNotFound    Code = "DOMAIN_NOT_FOUND"

	// Session errors
	CodeSessionNotActive Code = "SESSION_NOT_ACTIVE"
	CodeInvalidState     Code = "INVALID_STATE"
	CodeWrongClassroom   Code = "WRONG_CLASSROOM"

	// Presence errors
	CodeAlreadySignedIn Code = "ALREADY_SIGNED_IN"
	CodeNotSignedIn     Code = "NOT_SIGNED_IN"

	// Help errors
	CodeAlreadyHasOpenRequest Code = "ALREADY_HAS_OPEN_REQUEST"
	CodeCannotClaim           Code = "CANNOT_CLAIM"
	CodeCannotUnclaim         Code = "CANNOT_UNCLAIM"
	CodeCannotResolve         Code = "CANNOT_RESOLVE"
	CodeCannotCancel          Code = "CANNOT_CANCEL"
	CodeDuplicateName         Code = "DUPLICATE_NAME"

	// Ninja errors
	CodeNotAMember      Code = "NOT_A_MEMBER"
	CodeAlreadyAssigned Code = "ALREADY_ASSIGNED"
	CodeNotAssigned     Code = "NOT_ASSIGNED"

	// Person errors
	CodeAlreadyInClassroom Code = "ALREADY_IN_CLASSROOM"
	CodeEmailInUse         Code = "EMAIL_IN_USE"

	// PIN errors
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodePinInUse           Code = "PIN_IN_USE"
	CodeUnableToGenerate   Code = "UNABLE_TO_GENERATE"
	CodePinSessionExpired  Code = "PIN_SESSION_EXPIRED"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeValidation,
		CodeWrongClassroom:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeActiveSessionExists,
		CodeSessionNotActive,
		CodeInvalidState,
		CodeAlreadySignedIn,
		CodeNotSignedIn,
		CodeAlreadyHasOpenRequest,
		CodeCannotClaim,
		CodeCannotUnclaim,
		CodeCannotResolve,
		CodeCannotCancel,
		CodeNotAssigned,
		CodeFeatureDisabled,
		CodeUnableToGenerate:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeSessionNotFound,
		CodeClassroomNotFound,
		CodeDomainNotFound:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeDuplicateName,
		CodeAlreadyAssigned,
		CodeAlreadyInClassroom,
		CodeEmailInUse,
		CodePinInUse:
		return codes.AlreadyExists

	// Unauthenticated - caller identity missing or rejected
	case CodeNotAuthenticated,
		CodeInvalidCredentials,
		CodePinSessionExpired:
		return codes.Unauthenticated

	// PermissionDenied - caller lacks the required role
	case CodeNotMember,
		CodeNotTeacher,
		CodeNotAuthorized,
		CodeNotAMember:
		return codes.PermissionDenied

	default:
		return codes.Internal
	}
}
