package service

import (
	"context"
	"testing"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/classroom"
)

func TestClassroomReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.svc.GetClassroom(ctx, "room-1")
	if err != nil || room.DisplayCode != "ABC123" {
		t.Fatalf("room = %+v, %v", room, err)
	}
	_, err = f.svc.GetClassroom(ctx, "room-2")
	assertCode(t, err, apperrors.CodeNotFound)
	_, err = f.svc.GetClassroomSettings(ctx, "room-2")
	assertCode(t, err, apperrors.CodeNotFound)

	mine, err := f.svc.ListMyClassrooms(ctx, "alice")
	if err != nil || len(mine) != 1 || mine[0].Classroom.ID != "room-1" {
		t.Fatalf("mine = %+v, %v", mine, err)
	}
	none, err := f.svc.ListMyClassrooms(ctx, "carol")
	if err != nil || len(none) != 0 {
		t.Fatalf("none = %+v, %v", none, err)
	}
}

func TestUpdateModules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	settings, err := f.svc.UpdateModules(ctx, "room-1", map[classroom.Module]bool{
		classroom.ModuleHelp:     false,
		classroom.ModuleProjects: true,
	})
	if err != nil {
		t.Fatalf("update modules: %v", err)
	}
	if settings.Modules[classroom.ModuleHelp].Enabled || !settings.Modules[classroom.ModuleProjects].Enabled {
		t.Fatalf("settings = %+v", settings)
	}
	if !settings.Modules[classroom.ModulePresence].Enabled {
		t.Fatal("presence should be untouched")
	}

	stored, err := f.svc.GetClassroomSettings(ctx, "room-1")
	if err != nil || stored.Modules[classroom.ModuleHelp].Enabled {
		t.Fatalf("stored = %+v, %v", stored, err)
	}

	err = f.svc.RequireModule(ctx, "room-1", classroom.ModuleHelp)
	assertCode(t, err, apperrors.CodeFeatureDisabled)
	if meta := apperrors.GetMetadata(err); meta["feature"] != "help" || meta["classroomId"] != "room-1" {
		t.Fatalf("metadata = %v", meta)
	}
	if err := f.svc.RequireModule(ctx, "room-1", classroom.ModulePresence); err != nil {
		t.Fatalf("presence required: %v", err)
	}

	_, err = f.svc.UpdateModules(ctx, "room-1", map[classroom.Module]bool{"gardening": true})
	assertCode(t, err, apperrors.CodeValidation)
	_, err = f.svc.UpdateModules(ctx, "room-2", map[classroom.Module]bool{classroom.ModuleHelp: true})
	assertCode(t, err, apperrors.CodeNotFound)
}
