package models

import "time"

// User is the account record stored under user:{username} in the shared partition.
// JSON field names are shared with the browser clients reading the same store.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    int64  `json:"createdAt"` // unix millis
}

// CreatedTime returns CreatedAt as a time.Time
func (u *User) CreatedTime() time.Time {
	return time.UnixMilli(u.CreatedAt)
}

// Public returns a copy without the password hash
func (u *User) Public() *User {
	return &User{Username: u.Username, CreatedAt: u.CreatedAt}
}
