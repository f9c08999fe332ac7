package models

import "time"

// AccessToken is the sole authorization gate for the parent portal: whoever
// holds the token value acts as the bound student's parent.
type AccessToken struct {
	Token      string
	StudentID  string
	ParentID   string
	ParentName string
	CreatedAt  time.Time
	ExpiresAt  *time.Time // nil = never expires
	RevokedAt  *time.Time
}

func (t AccessToken) Live(now time.Time) bool {
	if t.RevokedAt != nil {
		return false
	}
	if t.ExpiresAt != nil && now.After(*t.ExpiresAt) {
		return false
	}
	return true
}
