package errors

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	sentinel := New(CodeCannotClaim, "cannot claim")
	err := fmt.Errorf("claim: %w", WithMetadata(CodeCannotClaim, "request already claimed", map[string]string{"status": "claimed"}))

	if !errors.Is(err, sentinel) {
		t.Fatal("expected wrapped error to match sentinel code")
	}
	if errors.Is(err, New(CodeCannotResolve, "other")) {
		t.Fatal("expected different code not to match")
	}
	if GetCode(err) != CodeCannotClaim {
		t.Fatalf("expected code %s, got %s", CodeCannotClaim, GetCode(err))
	}
	if GetMetadata(err)["status"] != "claimed" {
		t.Fatalf("expected metadata to survive wrapping, got %v", GetMetadata(err))
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeInternal, "append event", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if !IsCode(err, CodeInternal) {
		t.Fatal("expected internal code")
	}
}

func TestGetCodeUnknownForPlainErrors(t *testing.T) {
	if got := GetCode(errors.New("boom")); got != CodeUnknown {
		t.Fatalf("expected unknown code, got %s", got)
	}
	if GetMetadata(errors.New("boom")) != nil {
		t.Fatal("expected nil metadata")
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeValidation, codes.InvalidArgument},
		{CodeSessionNotActive, codes.FailedPrecondition},
		{CodeCannotClaim, codes.FailedPrecondition},
		{CodeSessionNotFound, codes.NotFound},
		{CodeDuplicateName, codes.AlreadyExists},
		{CodeNotAuthenticated, codes.Unauthenticated},
		{CodeNotTeacher, codes.PermissionDenied},
		{CodeInternal, codes.Internal},
		{Code("SOMETHING_NEW"), codes.Internal},
	}
	for _, tt := range tests {
		if got := tt.code.GRPCCode(); got != tt.want {
			t.Fatalf("%s: expected %s, got %s", tt.code, tt.want, got)
		}
	}
}

func TestHandleErrorAttachesErrorInfo(t *testing.T) {
	err := HandleError(WithMetadata(CodeCannotClaim, "request already claimed", map[string]string{"status": "claimed"}))
	st, ok := status.FromError(err)
	if !ok {
		t.Fatal("expected grpc status")
	}
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %s", st.Code())
	}
	var info *errdetails.ErrorInfo
	for _, detail := range st.Details() {
		if d, ok := detail.(*errdetails.ErrorInfo); ok {
			info = d
		}
	}
	if info == nil {
		t.Fatal("expected error info detail")
	}
	if info.GetReason() != string(CodeCannotClaim) {
		t.Fatalf("expected reason %s, got %s", CodeCannotClaim, info.GetReason())
	}
	if info.GetDomain() != Domain {
		t.Fatalf("expected domain %s, got %s", Domain, info.GetDomain())
	}
}

func TestHandleErrorHidesInternalMessages(t *testing.T) {
	err := HandleError(Wrap(CodeInternal, "sqlite: database is locked", errors.New("locked")))
	st, _ := status.FromError(err)
	if st.Code() != codes.Internal {
		t.Fatalf("expected internal, got %s", st.Code())
	}
	if st.Message() == "sqlite: database is locked" {
		t.Fatal("expected internal message to be hidden")
	}

	plain := HandleError(errors.New("boom"))
	if status.Code(plain) != codes.Internal {
		t.Fatalf("expected internal for plain errors, got %s", status.Code(plain))
	}
	if HandleError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}
