package models

import "time"

// Subteam is a sport-specific program nested under an institution.
type Subteam struct {
	ID            int       `json:"id" db:"id"`
	InstitutionID int       `json:"institution_id" db:"institution_id"`
	Name          string    `json:"name" db:"name"`
	Sport         string    `json:"sport" db:"sport"`
	CoachUserID   *int      `json:"coach_user_id,omitempty" db:"coach_user_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	MemberCount int   `json:"member_count" db:"-"`
	Coach       *User `json:"coach,omitempty" db:"-"`
}

// SportProgram groups an institution's subteams under one sport.
// Empty programs stand in for declared sports with no subteam yet.
type SportProgram struct {
	Sport    string    `json:"sport"`
	Subteams []Subteam `json:"subteams"`
	Empty    bool      `json:"empty"`
}
