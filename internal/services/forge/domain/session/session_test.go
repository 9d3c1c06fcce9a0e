package session

import (
	"errors"
	"testing"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func newScheduled(t *testing.T) Session {
	t.Helper()
	s, err := Create(Record{
		ID:          "s1",
		ClassroomID: "c1",
		SessionType: TypeStructured,
		StartTime:   at(9, 0),
		EndTime:     at(11, 0),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func TestCreateValidates(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		path   string
	}{
		{"blank classroom", Record{ClassroomID: " ", SessionType: TypeDropIn, StartTime: at(9, 0), EndTime: at(10, 0)}, "classroomId"},
		{"bad type", Record{ClassroomID: "c1", SessionType: "lecture", StartTime: at(9, 0), EndTime: at(10, 0)}, "sessionType"},
		{"end before start", Record{ClassroomID: "c1", SessionType: TypeDropIn, StartTime: at(10, 0), EndTime: at(9, 0)}, "startTime"},
		{"equal times", Record{ClassroomID: "c1", SessionType: TypeDropIn, StartTime: at(10, 0), EndTime: at(10, 0)}, "startTime"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Create(tt.record)
			if !errors.Is(err, domainerr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			issues := domainerr.IssuesOf(err)
			if len(issues) == 0 || issues[0].Path != tt.path {
				t.Fatalf("expected issue on %s, got %+v", tt.path, issues)
			}
		})
	}
}

func TestCreateDefaultsToScheduled(t *testing.T) {
	s := newScheduled(t)
	if s.Status() != StatusScheduled {
		t.Fatalf("expected scheduled, got %s", s.Status())
	}
	if s.AllowsSignIn() {
		t.Fatal("scheduled session should not allow sign in")
	}
}

func TestLifecycle(t *testing.T) {
	s := newScheduled(t)
	started, err := s.Start(at(9, 2))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Status() != StatusScheduled {
		t.Fatal("start mutated receiver")
	}
	if !started.IsActive() || !started.AllowsSignIn() || started.Record().ActualStartAt == nil {
		t.Fatalf("unexpected started session: %+v", started.Record())
	}
	if started.ActualDurationMinutes() != nil {
		t.Fatal("expected nil actual duration before end")
	}
	ended, err := started.End(at(10, 47))
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if !ended.HasEnded() || ended.Status() != StatusEnded {
		t.Fatalf("expected ended, got %s", ended.Status())
	}
	if got := ended.ActualDurationMinutes(); got == nil || *got != 105 {
		t.Fatalf("expected 105 actual minutes, got %v", got)
	}
}

func TestScheduledDuration(t *testing.T) {
	if got := newScheduled(t).ScheduledDurationMinutes(); got != 120 {
		t.Fatalf("expected 120, got %d", got)
	}
}

func TestIllegalTransitionsConflict(t *testing.T) {
	s := newScheduled(t)
	if _, err := s.End(at(10, 0)); !errors.Is(err, domainerr.ErrConflict) {
		t.Fatalf("expected conflict ending scheduled session, got %v", err)
	}
	started, _ := s.Start(at(9, 0))
	same, err := started.Start(at(9, 5))
	if !errors.Is(err, domainerr.ErrConflict) {
		t.Fatalf("expected conflict restarting, got %v", err)
	}
	if same.Record().ActualStartAt == nil || !same.Record().ActualStartAt.Equal(at(9, 0)) {
		t.Fatal("failed transition changed the value")
	}
	if _, err := started.Cancel(); !errors.Is(err, domainerr.ErrConflict) {
		t.Fatalf("expected conflict cancelling active session, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	cancelled, err := newScheduled(t).Cancel()
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !cancelled.HasEnded() || cancelled.CanStart() {
		t.Fatalf("unexpected cancelled state: %s", cancelled.Status())
	}
}

func TestRecordIsCopy(t *testing.T) {
	started, _ := newScheduled(t).Start(at(9, 0))
	r := started.Record()
	*r.ActualStartAt = at(12, 0)
	if started.Record().ActualStartAt.Equal(at(12, 0)) {
		t.Fatal("record mutation leaked into session")
	}
}
