package models

import "time"

type PresenceStatus string

const (
	StatusLooking  PresenceStatus = "looking"
	StatusStudying PresenceStatus = "studying"
)

// DefaultStaleAfter is the freshness window for presence records
const DefaultStaleAfter = 5 * time.Minute

// PresenceRecord advertises a user's study availability in one classroom
type PresenceRecord struct {
	Username   string         `json:"username"`
	Status     PresenceStatus `json:"status"`
	Duration   int            `json:"duration"`   // minutes
	LastActive int64          `json:"lastActive"` // unix millis
}

// IsStale reports whether the record is older than window at now.
// A record exactly window old is still fresh.
func (p *PresenceRecord) IsStale(now time.Time, window time.Duration) bool {
	return now.UnixMilli()-p.LastActive > window.Milliseconds()
}

// IsStudying reports whether the user already started a session
func (p *PresenceRecord) IsStudying() bool {
	return p.Status == StatusStudying
}

func (p *PresenceRecord) LastActiveTime() time.Time {
	return time.UnixMilli(p.LastActive)
}
