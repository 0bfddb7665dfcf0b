package models

import "time"

// PlayerInfoSubmission is a roster entry. UserID is nil for players
// without an app account.
type PlayerInfoSubmission struct {
	ID           int       `json:"id" db:"id"`
	TeamID       int       `json:"team_id" db:"team_id"`
	SubteamID    *int      `json:"subteam_id,omitempty" db:"subteam_id"`
	UserID       *int      `json:"user_id,omitempty" db:"user_id"`
	PlayerName   string    `json:"player_name" db:"player_name"`
	JerseyNumber *int      `json:"jersey_number,omitempty" db:"jersey_number"`
	JerseySize   string    `json:"jersey_size" db:"jersey_size"`
	Position     string    `json:"position" db:"position"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
