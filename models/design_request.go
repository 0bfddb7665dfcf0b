package models

import "time"

type DesignStatus string

const (
	DesignStatusPending          DesignStatus = "pending"
	DesignStatusInReview         DesignStatus = "in_review"
	DesignStatusRendering        DesignStatus = "rendering"
	DesignStatusReady            DesignStatus = "ready"
	DesignStatusApproved         DesignStatus = "approved"
	DesignStatusChangesRequested DesignStatus = "changes_requested"
	DesignStatusDesignReady      DesignStatus = "design_ready"
	DesignStatusShipped          DesignStatus = "shipped"
	DesignStatusDelivered        DesignStatus = "delivered"
	DesignStatusRejected         DesignStatus = "rejected"
	DesignStatusCancelled        DesignStatus = "cancelled"
)

// designTransitions is the single source of truth for legal status
// changes. A status absent from the map is terminal.
var designTransitions = map[DesignStatus][]DesignStatus{
	DesignStatusPending: {
		DesignStatusInReview, DesignStatusRendering, DesignStatusReady,
		DesignStatusChangesRequested, DesignStatusCancelled,
	},
	DesignStatusInReview: {
		DesignStatusPending, DesignStatusRendering, DesignStatusReady,
		DesignStatusApproved, DesignStatusChangesRequested,
		DesignStatusRejected, DesignStatusCancelled,
	},
	DesignStatusRendering: {
		DesignStatusPending, DesignStatusInReview, DesignStatusReady,
		DesignStatusApproved, DesignStatusChangesRequested,
		DesignStatusRejected, DesignStatusCancelled,
	},
	DesignStatusReady: {
		DesignStatusPending, DesignStatusApproved,
		DesignStatusChangesRequested, DesignStatusRejected,
		DesignStatusCancelled,
	},
	DesignStatusChangesRequested: {
		DesignStatusPending, DesignStatusInReview, DesignStatusRendering,
		DesignStatusReady, DesignStatusApproved, DesignStatusRejected,
		DesignStatusCancelled,
	},
	DesignStatusApproved: {
		DesignStatusDesignReady, DesignStatusReady,
	},
	DesignStatusDesignReady: {
		DesignStatusApproved, DesignStatusShipped,
	},
	DesignStatusShipped: {
		DesignStatusDelivered,
	},
}

// CanTransition reports whether from -> to is a legal status change.
func (from DesignStatus) CanTransition(to DesignStatus) bool {
	for _, allowed := range designTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Reviewable reports whether the request is still open for reviewer
// decisions. Approved and later production states are past review.
func (s DesignStatus) Reviewable() bool {
	switch s {
	case DesignStatusPending, DesignStatusInReview, DesignStatusRendering,
		DesignStatusReady, DesignStatusChangesRequested:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves the status.
func (s DesignStatus) Terminal() bool {
	return len(designTransitions[s]) == 0
}

func (s DesignStatus) Valid() bool {
	switch s {
	case DesignStatusPending, DesignStatusInReview, DesignStatusRendering,
		DesignStatusReady, DesignStatusApproved, DesignStatusChangesRequested,
		DesignStatusDesignReady, DesignStatusShipped, DesignStatusDelivered,
		DesignStatusRejected, DesignStatusCancelled:
		return true
	}
	return false
}

// DesignRequest is a team's in-progress custom apparel design and its
// approval lifecycle. Mockups are either a free-form key list or the
// structured home/away pair.
type DesignRequest struct {
	ID             int          `json:"id" db:"id"`
	TeamID         int          `json:"team_id" db:"team_id"`
	SubteamID      *int         `json:"subteam_id,omitempty" db:"subteam_id"`
	DesignID       *int         `json:"design_id,omitempty" db:"design_id"`
	RequesterID    int          `json:"requester_id" db:"requester_id"`
	Status         DesignStatus `json:"status" db:"status"`
	PrimaryColor   string       `json:"primary_color" db:"primary_color"`
	SecondaryColor string       `json:"secondary_color" db:"secondary_color"`
	Feedback       *string      `json:"feedback,omitempty" db:"feedback"`
	MockupKeys     []string     `json:"-" db:"mockup_keys"`
	HomeMockupKey  *string      `json:"-" db:"home_mockup_key"`
	AwayMockupKey  *string      `json:"-" db:"away_mockup_key"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`

	MockupURLs    []string        `json:"mockup_urls,omitempty" db:"-"`
	HomeMockupURL *string         `json:"home_mockup_url,omitempty" db:"-"`
	AwayMockupURL *string         `json:"away_mockup_url,omitempty" db:"-"`
	Reactions     []ReactionCount `json:"reactions,omitempty" db:"-"`
}

// HasMockups reports whether at least one mockup is attached, in
// either shape.
func (d *DesignRequest) HasMockups() bool {
	return len(d.MockupKeys) > 0 || d.HomeMockupKey != nil || d.AwayMockupKey != nil
}
