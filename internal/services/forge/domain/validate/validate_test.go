package validate

import (
	"errors"
	"testing"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
)

type sample struct {
	Name    string `json:"name" validate:"notblank,max=5"`
	Kind    string `json:"kind" validate:"oneof=a b"`
	Ignored string `json:"-"`
}

func TestStructCollectsIssuesByJSONName(t *testing.T) {
	err := Struct(sample{Name: "   ", Kind: "c"}, map[string]string{"name": "Name"})
	if !errors.Is(err, domainerr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	issues := domainerr.IssuesOf(err)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	if issues[0].Path != "name" || issues[0].Message != "Name is required" {
		t.Fatalf("unexpected first issue: %+v", issues[0])
	}
	if issues[1].Path != "kind" || issues[1].Message != "kind must be one of: a, b" {
		t.Fatalf("unexpected second issue: %+v", issues[1])
	}
}

func TestStructPasses(t *testing.T) {
	if err := Struct(sample{Name: "ok", Kind: "a"}, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestVarReportsLabel(t *testing.T) {
	err := Var("description", "Description", "abcdef", "max=3")
	issues := domainerr.IssuesOf(err)
	if len(issues) != 1 || issues[0].Message != "Description must be 3 characters or less" {
		t.Fatalf("unexpected issues: %+v", issues)
	}
}
