package models

import "time"

type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusExpired  InviteStatus = "expired"
)

// TeamInvite links an email (and optionally a roster submission) to a
// pending join action.
type TeamInvite struct {
	ID           int          `json:"id" db:"id"`
	TeamID       int          `json:"team_id" db:"team_id"`
	SubmissionID *int         `json:"submission_id,omitempty" db:"submission_id"`
	Email        string       `json:"email" db:"email"`
	Token        string       `json:"-" db:"token"`
	Status       InviteStatus `json:"status" db:"status"`
	ExpiresAt    time.Time    `json:"expires_at" db:"expires_at"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// Pending reports whether the invite can still be accepted at t.
func (i *TeamInvite) Pending(t time.Time) bool {
	return i.Status == InviteStatusPending && t.Before(i.ExpiresAt)
}
