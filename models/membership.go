package models

import "time"

type TeamRole string

const (
	TeamRoleOwner   TeamRole = "owner"
	TeamRoleManager TeamRole = "manager"
	TeamRolePlayer  TeamRole = "player"
)

type InstitutionRole string

const (
	InstitutionRoleAthleticDirector InstitutionRole = "athletic_director"
	InstitutionRoleCoach            InstitutionRole = "coach"
	InstitutionRoleAssistant        InstitutionRole = "assistant"
	InstitutionRolePlayer           InstitutionRole = "player"
)

// TeamMembership links a user to a team. At most one row exists per
// (team_id, user_id) pair.
type TeamMembership struct {
	ID              int              `json:"id" db:"id"`
	TeamID          int              `json:"team_id" db:"team_id"`
	UserID          int              `json:"user_id" db:"user_id"`
	Role            TeamRole         `json:"role" db:"role"`
	InstitutionRole *InstitutionRole `json:"institution_role,omitempty" db:"institution_role"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}

// CanReviewDesigns reports whether the membership grants reviewer
// decisions (approve, reject, confirm production, request changes).
func (m *TeamMembership) CanReviewDesigns(teamType TeamType) bool {
	if teamType == TeamTypeInstitution {
		return m.InstitutionRole != nil && *m.InstitutionRole == InstitutionRoleAthleticDirector
	}
	return m.Role == TeamRoleOwner || m.Role == TeamRoleManager
}

// InstitutionPermissions is the permission set derived from a resolved
// institution role.
type InstitutionPermissions struct {
	CanCreatePrograms       bool `json:"can_create_programs"`
	CanCreateDesignRequests bool `json:"can_create_design_requests"`
	CanManageOrders         bool `json:"can_manage_orders"`
	CanViewAllPrograms      bool `json:"can_view_all_programs"`
}

// ResolvedInstitutionRole is the outcome of the role priority chain:
// athletic director, then head coach of at least one subteam, then
// assistant, then player.
type ResolvedInstitutionRole struct {
	Role        InstitutionRole        `json:"role"`
	SubteamIDs  []int                  `json:"subteam_ids,omitempty"`
	Permissions InstitutionPermissions `json:"permissions"`
}
