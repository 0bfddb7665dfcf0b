package models

// MemberStatus tags one entry of the unified member view. The ordinal
// drives the sort order of the reconciled list.
type MemberStatus int

const (
	MemberStatusActive MemberStatus = iota
	MemberStatusHasAccount
	MemberStatusInvited
	MemberStatusRosterOnly
)

var memberStatusNames = map[MemberStatus]string{
	MemberStatusActive:     "Active Member",
	MemberStatusHasAccount: "Has Account (Not Member)",
	MemberStatusInvited:    "Invited (Pending)",
	MemberStatusRosterOnly: "Roster Only",
}

func (s MemberStatus) String() string {
	return memberStatusNames[s]
}

func (s MemberStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + memberStatusNames[s] + `"`), nil
}

// UnifiedMember is one row of the reconciled member list, merged from
// team_memberships, player_info_submissions and team_invites. It has
// no persisted identity; it exists only for the duration of a
// settings-page load.
type UnifiedMember struct {
	Status       MemberStatus `json:"status"`
	DisplayName  string       `json:"display_name"`
	UserID       *int         `json:"user_id,omitempty"`
	MembershipID *int         `json:"membership_id,omitempty"`
	SubmissionID *int         `json:"submission_id,omitempty"`
	InviteID     *int         `json:"invite_id,omitempty"`
	Role         *TeamRole    `json:"role,omitempty"`
	Email        string       `json:"email,omitempty"`
	JerseySize   string       `json:"jersey_size,omitempty"`
	Position     string       `json:"position,omitempty"`
}
