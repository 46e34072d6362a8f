package models

// Session is the locally held state of one study session
type Session struct {
	Buddy           *PresenceRecord `json:"buddy"`
	Classroom       Classroom       `json:"classroom"`
	DurationMinutes int             `json:"duration"`
}

// IsSolo reports whether the session has no buddy
func (s *Session) IsSolo() bool {
	return s.Buddy == nil
}

// TotalSeconds is the full countdown length
func (s *Session) TotalSeconds() int {
	return s.DurationMinutes * 60
}

// BuddyName returns the buddy's username, or "" for solo sessions
func (s *Session) BuddyName() string {
	if s.Buddy == nil {
		return ""
	}
	return s.Buddy.Username
}
