package models

import "fmt"

// Keys in the private (per device) partition
const (
	CurrentUserKey = "current-user"
)

// UserKey is the shared key of a user record
func UserKey(username string) string {
	return fmt.Sprintf("user:%s", username)
}

// ClassesKey is the private key holding a user's classroom list
func ClassesKey(username string) string {
	return fmt.Sprintf("classes:%s", username)
}

// ClassroomKey is the shared key of a classroom record
func ClassroomKey(classroomID string) string {
	return fmt.Sprintf("classroom:%s", classroomID)
}

// InviteKey is the shared key mapping an invite code to a classroom id
func InviteKey(code string) string {
	return fmt.Sprintf("invite:%s", code)
}

// PresencePrefix is the shared namespace of a classroom's presence records
func PresencePrefix(classroomID string) string {
	return fmt.Sprintf("study:%s:", classroomID)
}

// PresenceKey is the shared key of one user's presence record in a classroom
func PresenceKey(classroomID, username string) string {
	return PresencePrefix(classroomID) + username
}
