package services

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/SAP-F-2025/study-buddy-service/internal/events"
	"github.com/SAP-F-2025/study-buddy-service/internal/models"
)

var (
	alice = Actor{DeviceID: "device-a", Username: "alice"}
	bob   = Actor{DeviceID: "device-b", Username: "bob"}
	carol = Actor{DeviceID: "device-c", Username: "carol"}

	classroomIDPattern = regexp.MustCompile(`^\d+-[a-z0-9]{9}$`)
	inviteCodePattern  = regexp.MustCompile(`^[A-Z0-9]{8}$`)
)

func TestClassroomService_Create(t *testing.T) {
	env := newTestEnv(t)
	svc := env.classrooms()
	ctx := context.Background()

	classroom, err := svc.Create(ctx, alice, &CreateClassroomRequest{Name: "  Algorithms  "})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !classroomIDPattern.MatchString(classroom.ID) {
		t.Errorf("id = %q does not look like <millis>-<suffix>", classroom.ID)
	}
	if !strings.HasPrefix(classroom.ID, "1772355600000-") {
		t.Errorf("id = %q should start with the creation time", classroom.ID)
	}
	if !inviteCodePattern.MatchString(classroom.InviteCode) {
		t.Errorf("invite code = %q", classroom.InviteCode)
	}
	if classroom.Name != "Algorithms" || classroom.Owner != "alice" {
		t.Errorf("classroom = %+v", classroom)
	}
	if !slices.Equal(classroom.Members, []string{"alice"}) {
		t.Errorf("members = %v, want [alice]", classroom.Members)
	}

	invite, err := env.backend.Shared().Get(ctx, models.InviteKey(classroom.InviteCode), true)
	if err != nil || invite == nil || invite.Value != classroom.ID {
		t.Errorf("invite mapping = %v, %v", invite, err)
	}

	list, err := svc.List(ctx, alice)
	if err != nil || len(list) != 1 || list[0].ID != classroom.ID {
		t.Errorf("List() = %v, %v", list, err)
	}

	if got := env.publisher.EventsOfType(events.ClassroomCreated); len(got) != 1 {
		t.Errorf("classroom.created events = %d, want 1", len(got))
	}

	t.Run("blank name rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, alice, &CreateClassroomRequest{Name: "   "})
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("Create() error = %v, want validation error", err)
		}
	})
}

func TestClassroomService_JoinByCode(t *testing.T) {
	env := newTestEnv(t)
	svc := env.classrooms()
	ctx := context.Background()

	classroom, err := svc.Create(ctx, alice, &CreateClassroomRequest{Name: "Physics"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("lowercase code is accepted", func(t *testing.T) {
		joined, err := svc.JoinByCode(ctx, bob, &JoinClassroomRequest{Code: " " + strings.ToLower(classroom.InviteCode) + " "})
		if err != nil {
			t.Fatalf("JoinByCode() error = %v", err)
		}
		if !slices.Equal(joined.Members, []string{"alice", "bob"}) {
			t.Errorf("members = %v", joined.Members)
		}
	})

	t.Run("joining twice is rejected and membership stays unique", func(t *testing.T) {
		_, err := svc.JoinByCode(ctx, bob, &JoinClassroomRequest{Code: classroom.InviteCode})
		if !errors.Is(err, ErrAlreadyMember) || !errors.Is(err, ErrValidationFailed) {
			t.Fatalf("second JoinByCode() error = %v, want ErrAlreadyMember", err)
		}

		stored, err := svc.Get(ctx, alice, classroom.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		count := 0
		for _, m := range stored.Members {
			if m == "bob" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("bob appears %d times in %v", count, stored.Members)
		}

		list, _ := svc.List(ctx, bob)
		if len(list) != 1 {
			t.Errorf("bob's list has %d classrooms, want 1", len(list))
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := svc.JoinByCode(ctx, carol, &JoinClassroomRequest{Code: "ZZZZZZZZ"})
		if !errors.Is(err, ErrInvalidInviteCode) {
			t.Errorf("JoinByCode() error = %v, want ErrInvalidInviteCode", err)
		}
	})

	t.Run("malformed code", func(t *testing.T) {
		_, err := svc.JoinByCode(ctx, carol, &JoinClassroomRequest{Code: "abc"})
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("JoinByCode() error = %v, want validation error", err)
		}
	})

	t.Run("dangling invite", func(t *testing.T) {
		if err := env.backend.Shared().Set(ctx, models.InviteKey("DANGLING"), "missing-id", true); err != nil {
			t.Fatal(err)
		}
		_, err := svc.JoinByCode(ctx, carol, &JoinClassroomRequest{Code: "DANGLING"})
		if !errors.Is(err, ErrClassroomNotFound) {
			t.Errorf("JoinByCode() error = %v, want ErrClassroomNotFound", err)
		}
	})

	if got := env.publisher.EventsOfType(events.ClassroomJoined); len(got) != 1 {
		t.Errorf("classroom.joined events = %d, want 1", len(got))
	}
}

func TestClassroomService_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("member leaves", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.classrooms()
		classroom, _ := svc.Create(ctx, alice, &CreateClassroomRequest{Name: "Chemistry"})
		if _, err := svc.JoinByCode(ctx, bob, &JoinClassroomRequest{Code: classroom.InviteCode}); err != nil {
			t.Fatal(err)
		}

		if err := svc.Remove(ctx, bob, classroom.ID); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		list, _ := svc.List(ctx, bob)
		if len(list) != 0 {
			t.Errorf("bob still lists %d classrooms", len(list))
		}
		stored, err := svc.Get(ctx, alice, classroom.ID)
		if err != nil {
			t.Fatalf("classroom should survive a member leaving: %v", err)
		}
		if stored.HasMember("bob") {
			t.Errorf("members = %v", stored.Members)
		}
	})

	t.Run("owner deletes", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.classrooms()
		classroom, _ := svc.Create(ctx, alice, &CreateClassroomRequest{Name: "Biology"})
		if _, err := svc.JoinByCode(ctx, bob, &JoinClassroomRequest{Code: classroom.InviteCode}); err != nil {
			t.Fatal(err)
		}

		if err := svc.Remove(ctx, alice, classroom.ID); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		if _, err := svc.Get(ctx, bob, classroom.ID); !errors.Is(err, ErrClassroomNotFound) {
			t.Errorf("Get() after delete error = %v", err)
		}
		invite, _ := env.backend.Shared().Get(ctx, models.InviteKey(classroom.InviteCode), true)
		if invite != nil {
			t.Error("invite code should be removed with the classroom")
		}
		if _, err := svc.JoinByCode(ctx, carol, &JoinClassroomRequest{Code: classroom.InviteCode}); !errors.Is(err, ErrInvalidInviteCode) {
			t.Errorf("JoinByCode() after delete error = %v", err)
		}

		// bob keeps a stale cached copy until he removes it himself
		list, _ := svc.List(ctx, bob)
		if len(list) != 1 || list[0].ID != classroom.ID {
			t.Errorf("bob's list = %v", list)
		}
		if err := svc.Remove(ctx, bob, classroom.ID); err != nil {
			t.Errorf("removing a deleted classroom from the list failed: %v", err)
		}
		if got := env.publisher.EventsOfType(events.ClassroomRemoved); len(got) != 1 {
			t.Errorf("classroom.removed events = %d, want 1", len(got))
		}
	})

	t.Run("unknown classroom", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.classrooms().Remove(ctx, alice, "nope"); !errors.Is(err, ErrClassroomNotFound) {
			t.Errorf("Remove() error = %v, want ErrClassroomNotFound", err)
		}
	})
}

func TestClassroomService_ListRefreshesFromShared(t *testing.T) {
	env := newTestEnv(t)
	svc := env.classrooms()
	ctx := context.Background()

	classroom, _ := svc.Create(ctx, alice, &CreateClassroomRequest{Name: "History"})
	if _, err := svc.JoinByCode(ctx, bob, &JoinClassroomRequest{Code: classroom.InviteCode}); err != nil {
		t.Fatal(err)
	}

	list, err := svc.List(ctx, alice)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || !list[0].HasMember("bob") {
		t.Errorf("alice's list should show bob after a refresh: %+v", list)
	}

	t.Run("read failure yields an empty list", func(t *testing.T) {
		env.backend.FailWith(errors.New("connection refused"))
		defer env.backend.FailWith(nil)

		list, err := svc.List(ctx, alice)
		if err != nil || len(list) != 0 {
			t.Errorf("List() = %v, %v; want empty, nil", list, err)
		}
	})
}

func TestClassroomService_GetAndInviteCode(t *testing.T) {
	env := newTestEnv(t)
	svc := env.classrooms()
	ctx := context.Background()

	classroom, _ := svc.Create(ctx, alice, &CreateClassroomRequest{Name: "Art"})

	code, err := svc.InviteCode(ctx, alice, classroom.ID)
	if err != nil || code != classroom.InviteCode {
		t.Errorf("InviteCode() = %q, %v", code, err)
	}

	_, err = svc.InviteCode(ctx, bob, classroom.ID)
	var permErr *PermissionError
	if !errors.Is(err, ErrForbidden) || !errors.As(err, &permErr) {
		t.Fatalf("InviteCode() for non-member error = %v, want PermissionError", err)
	}
	if permErr.Username != "bob" || permErr.ResourceID != classroom.ID {
		t.Errorf("permission error = %+v", permErr)
	}

	if _, err := svc.Get(ctx, alice, "missing"); !errors.Is(err, ErrClassroomNotFound) {
		t.Errorf("Get() error = %v", err)
	}
}
