package models

import "slices"

// Classroom is a named group with an owner, a member list and an invite code
type Classroom struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Owner      string   `json:"owner"`
	InviteCode string   `json:"inviteCode"`
	Members    []string `json:"members"`
	CreatedAt  int64    `json:"createdAt"` // unix millis
}

// IsOwner reports whether username owns the classroom
func (c *Classroom) IsOwner(username string) bool {
	return c.Owner == username
}

// HasMember reports whether username is in the member list
func (c *Classroom) HasMember(username string) bool {
	return slices.Contains(c.Members, username)
}

// AddMember appends username unless already present; it reports whether the list changed
func (c *Classroom) AddMember(username string) bool {
	if c.HasMember(username) {
		return false
	}
	c.Members = append(c.Members, username)
	return true
}

// RemoveMember drops every occurrence of username
func (c *Classroom) RemoveMember(username string) {
	c.Members = slices.DeleteFunc(c.Members, func(m string) bool { return m == username })
}
