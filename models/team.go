package models

import "time"

type TeamType string

const (
	TeamTypeSingle      TeamType = "single_team"
	TeamTypeInstitution TeamType = "institution"
)

type Team struct {
	ID             int       `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Slug           string    `json:"slug" db:"slug"`
	Sport          string    `json:"sport" db:"sport"`
	TeamType       TeamType  `json:"team_type" db:"team_type"`
	PrimaryColor   string    `json:"primary_color" db:"primary_color"`
	SecondaryColor string    `json:"secondary_color" db:"secondary_color"`
	OwnerID        int       `json:"owner_id" db:"owner_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	// Sports an institution has declared, whether or not a program
	// exists for them yet. Empty for single teams.
	Sports []string `json:"sports,omitempty" db:"sports"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`
}

func (t *Team) IsInstitution() bool {
	return t.TeamType == TeamTypeInstitution
}
