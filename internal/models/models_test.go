package models

import (
	"testing"
	"time"
)

func TestPresenceRecord_IsStale(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{name: "fresh", age: time.Second, want: false},
		{name: "just under window", age: DefaultStaleAfter - time.Millisecond, want: false},
		{name: "exactly window is fresh", age: DefaultStaleAfter, want: false},
		{name: "one millisecond over", age: DefaultStaleAfter + time.Millisecond, want: true},
		{name: "long gone", age: time.Hour, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &PresenceRecord{Username: "ana", LastActive: now.Add(-tt.age).UnixMilli()}
			if got := rec.IsStale(now, DefaultStaleAfter); got != tt.want {
				t.Errorf("IsStale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassroom_Membership(t *testing.T) {
	c := &Classroom{ID: "1", Owner: "owner", Members: []string{"owner"}}

	if !c.AddMember("ana") {
		t.Fatal("AddMember(ana) should change the list")
	}
	if c.AddMember("ana") {
		t.Error("AddMember(ana) twice should be a no-op")
	}
	if len(c.Members) != 2 {
		t.Fatalf("Members = %v, want 2 entries", c.Members)
	}

	c.RemoveMember("ana")
	if c.HasMember("ana") {
		t.Error("ana should be removed")
	}
	if !c.IsOwner("owner") || c.IsOwner("ana") {
		t.Error("IsOwner mismatch")
	}
}

func TestKeys(t *testing.T) {
	if got := PresenceKey("c1", "ana"); got != "study:c1:ana" {
		t.Errorf("PresenceKey = %q", got)
	}
	if got := InviteKey("ABCD1234"); got != "invite:ABCD1234" {
		t.Errorf("InviteKey = %q", got)
	}
	if got := ClassesKey("ana"); got != "classes:ana" {
		t.Errorf("ClassesKey = %q", got)
	}
	if got := ClassroomKey("c1"); got != "classroom:c1" {
		t.Errorf("ClassroomKey = %q", got)
	}
}

func TestSession_Helpers(t *testing.T) {
	solo := &Session{DurationMinutes: 25}
	if !solo.IsSolo() || solo.BuddyName() != "" {
		t.Error("solo session should have no buddy")
	}
	if solo.TotalSeconds() != 1500 {
		t.Errorf("TotalSeconds = %d, want 1500", solo.TotalSeconds())
	}

	paired := &Session{Buddy: &PresenceRecord{Username: "ben"}, DurationMinutes: 45}
	if paired.IsSolo() || paired.BuddyName() != "ben" {
		t.Error("paired session should report its buddy")
	}
}
