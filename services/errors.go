package services

import "errors"

// Shared errors used across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrValidationFailed     = errors.New("validation failed")
	ErrPasswordTooShort     = errors.New("password is too short")
	ErrTeamNameRequired     = errors.New("team name is required")
	ErrFeedbackRequired     = errors.New("feedback text is required")
	ErrMockupsRequired      = errors.New("design request has no mockups to approve")
	ErrNotAnInstitution     = errors.New("team is not an institution")
	ErrSportNotDeclared     = errors.New("sport is not declared by the institution")
	ErrSubmissionHasAccount = errors.New("submission is already linked to an account")
	ErrInviteExpired        = errors.New("invite has expired")
	ErrInviteNotPending     = errors.New("invite is no longer pending")
	ErrOrderEmpty           = errors.New("order has no items")

	// Conflicts
	ErrUserEmailConflict  = errors.New("email address is already in use")
	ErrTeamSlugConflict   = errors.New("team name is already in use")
	ErrMembershipConflict = errors.New("user is already a member of this team")
	ErrReactionConflict   = errors.New("reaction already recorded")

	// Authentication and authorization
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrReviewerRoleRequired   = errors.New("only a reviewer may change the design status")
	ErrOwnerRemovalForbidden  = errors.New("cannot remove the team owner")

	// Entity-specific not-found errors
	ErrUserNotFound          = errors.New("user not found")
	ErrTeamNotFound          = errors.New("team not found")
	ErrMembershipNotFound    = errors.New("membership not found")
	ErrSubmissionNotFound    = errors.New("roster entry not found")
	ErrInviteNotFound        = errors.New("invite not found")
	ErrSubteamNotFound       = errors.New("program not found")
	ErrDesignRequestNotFound = errors.New("design request not found")
	ErrProductNotFound       = errors.New("product not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrReactionNotFound      = errors.New("reaction not found")

	// Status machine
	ErrDesignInvalidStatusTransition = errors.New("invalid design request status transition")
	ErrOrderInvalidStatusTransition  = errors.New("invalid order status transition")
)
