package person

import (
	"errors"
	"strings"
	"testing"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
)

func newPerson(t *testing.T) Person {
	t.Helper()
	p, err := Create(Record{ID: "p1", SchoolID: "sch1", Email: "ada@example.com", LegalName: "Ada Lovelace", DisplayName: "Ada", IsActive: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return p
}

func ptr[T any](v T) *T { return &v }

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		r    Record
		path string
	}{
		{"blank display name", Record{SchoolID: "s", DisplayName: "   "}, "displayName"},
		{"long display name", Record{SchoolID: "s", DisplayName: strings.Repeat("x", 101)}, "displayName"},
		{"bad email", Record{SchoolID: "s", DisplayName: "Ada", Email: "not-an-email"}, "email"},
		{"missing school", Record{DisplayName: "Ada"}, "schoolId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Create(tt.r)
			if !errors.Is(err, domainerr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if issues := domainerr.IssuesOf(err); len(issues) != 1 || issues[0].Path != tt.path {
				t.Fatalf("expected issue on %s, got %+v", tt.path, issues)
			}
		})
	}
}

func TestUpdateProfileReportsChangedFields(t *testing.T) {
	p := newPerson(t)
	next, changed, err := p.UpdateProfile(ProfileUpdate{
		DisplayName: ptr("  Ada  "),
		Pronouns:    ptr(" she/her "),
		AskMeAbout:  ptr([]string{" loops ", "", "recursion"}),
		ThemeColor:  ptr("#1a2B3c"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	want := []string{"pronouns", "askMeAbout", "themeColor"}
	if strings.Join(changed, ",") != strings.Join(want, ",") {
		t.Fatalf("expected changed %v, got %v", want, changed)
	}
	r := next.Record()
	if r.Pronouns != "she/her" || len(r.AskMeAbout) != 2 || r.AskMeAbout[0] != "loops" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if p.Record().Pronouns != "" {
		t.Fatal("update mutated receiver")
	}

	_, none, err := next.UpdateProfile(ProfileUpdate{Pronouns: ptr("she/her")})
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no changes, got %v %v", none, err)
	}
	cleared, changed, _ := next.UpdateProfile(ProfileUpdate{Pronouns: ptr("  ")})
	if cleared.Record().Pronouns != "" || len(changed) != 1 {
		t.Fatalf("expected pronouns cleared, got %q %v", cleared.Record().Pronouns, changed)
	}
}

func TestUpdateProfileRejects(t *testing.T) {
	p := newPerson(t)
	tests := []struct {
		name string
		u    ProfileUpdate
		path string
	}{
		{"blank name", ProfileUpdate{DisplayName: ptr(" ")}, "displayName"},
		{"too many topics", ProfileUpdate{AskMeAbout: ptr([]string{"a", "b", "c", "d", "e", "f"})}, "askMeAbout"},
		{"bad colour", ProfileUpdate{ThemeColor: ptr("red")}, "themeColor"},
		{"long working on", ProfileUpdate{CurrentlyWorkingOn: ptr(strings.Repeat("w", 201))}, "currentlyWorkingOn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := p.UpdateProfile(tt.u)
			if issues := domainerr.IssuesOf(err); len(issues) != 1 || issues[0].Path != tt.path {
				t.Fatalf("expected issue on %s, got %v", tt.path, err)
			}
		})
	}
}

func TestNormalizeTopicsAllowsFiveAfterFiltering(t *testing.T) {
	got, err := NormalizeTopics([]string{"a", " ", "b", "c", "", "d", "e"})
	if err != nil || len(got) != 5 {
		t.Fatalf("expected five topics, got %v %v", got, err)
	}
}
