package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/kitlocker/kitlocker-server/repositories"
	"golang.org/x/sync/errgroup"
)

type RosterService interface {
	// ListUnifiedMembers merges memberships, roster submissions and
	// pending invites into one deduplicated, ordered member list.
	ListUnifiedMembers(ctx context.Context, teamID int) ([]models.UnifiedMember, error)

	CreateSubmission(ctx context.Context, input CreateSubmissionInput, currentUserID int) (*models.PlayerInfoSubmission, error)
	UpdateSubmission(ctx context.Context, submissionID int, input UpdateSubmissionInput, currentUserID int) (*models.PlayerInfoSubmission, error)
	DeleteSubmission(ctx context.Context, submissionID int, currentUserID int) error
}

type CreateSubmissionInput struct {
	TeamID       int    `json:"team_id" validate:"required,gt=0"`
	SubteamID    *int   `json:"subteam_id,omitempty"`
	PlayerName   string `json:"player_name" validate:"required"`
	JerseyNumber *int   `json:"jersey_number,omitempty"`
	JerseySize   string `json:"jersey_size" validate:"required"`
	Position     string `json:"position"`
}

type UpdateSubmissionInput struct {
	PlayerName   *string `json:"player_name,omitempty"`
	JerseyNumber *int    `json:"jersey_number,omitempty"`
	JerseySize   *string `json:"jersey_size,omitempty"`
	Position     *string `json:"position,omitempty"`
	SubteamID    *int    `json:"subteam_id,omitempty"`
}

type rosterService struct {
	membershipRepo repositories.MembershipRepository
	submissionRepo repositories.SubmissionRepository
	inviteRepo     repositories.InviteRepository
	userRepo       repositories.UserRepository
	teamRepo       repositories.TeamRepository
}

func NewRosterService(
	membershipRepo repositories.MembershipRepository,
	submissionRepo repositories.SubmissionRepository,
	inviteRepo repositories.InviteRepository,
	userRepo repositories.UserRepository,
	teamRepo repositories.TeamRepository,
) RosterService {
	return &rosterService{
		membershipRepo: membershipRepo,
		submissionRepo: submissionRepo,
		inviteRepo:     inviteRepo,
		userRepo:       userRepo,
		teamRepo:       teamRepo,
	}
}

func (s *rosterService) ListUnifiedMembers(ctx context.Context, teamID int) ([]models.UnifiedMember, error) {
	if _, err := s.teamRepo.GetByID(ctx, teamID); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	// The three source tables are independent; fetch them
	// concurrently. Any failure aborts the whole reconciliation: the
	// caller gets an error, never a partial list.
	var (
		memberships []models.TeamMembership
		submissions []models.PlayerInfoSubmission
		invites     []models.TeamInvite
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		memberships, err = s.membershipRepo.ListByTeamID(gCtx, teamID)
		if err != nil {
			return fmt.Errorf("failed to list memberships: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		submissions, err = s.submissionRepo.ListByTeamID(gCtx, teamID)
		if err != nil {
			return fmt.Errorf("failed to list submissions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		invites, err = s.inviteRepo.ListPendingByTeamID(gCtx, teamID)
		if err != nil {
			return fmt.Errorf("failed to list invites: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Batch-fetch every profile the merge can possibly need in one
	// query instead of one lookup per row.
	idSet := make(map[int]struct{})
	for _, m := range memberships {
		idSet[m.UserID] = struct{}{}
	}
	for _, sub := range submissions {
		if sub.UserID != nil {
			idSet[*sub.UserID] = struct{}{}
		}
	}
	ids := make([]int, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	profiles, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profiles: %w", err)
	}

	submissionByUser := make(map[int]*models.PlayerInfoSubmission, len(submissions))
	for i := range submissions {
		if submissions[i].UserID != nil {
			submissionByUser[*submissions[i].UserID] = &submissions[i]
		}
	}
	inviteBySubmission := make(map[int]*models.TeamInvite, len(invites))
	now := time.Now()
	for i := range invites {
		if invites[i].SubmissionID != nil && invites[i].Pending(now) {
			inviteBySubmission[*invites[i].SubmissionID] = &invites[i]
		}
	}

	processedUsers := make(map[int]struct{}, len(memberships))
	processedSubmissions := make(map[int]struct{})
	unified := make([]models.UnifiedMember, 0, len(memberships)+len(submissions))

	// Pass 1: every membership row becomes an active member, merged
	// with its roster submission when one exists for the same user.
	for i := range memberships {
		m := &memberships[i]
		profile, ok := profiles[m.UserID]
		if !ok {
			return nil, fmt.Errorf("%w: membership %d references user %d", ErrUserNotFound, m.ID, m.UserID)
		}
		entry := models.UnifiedMember{
			Status:       models.MemberStatusActive,
			DisplayName:  profile.DisplayName(),
			UserID:       intPtr(m.UserID),
			MembershipID: intPtr(m.ID),
			Role:         &m.Role,
			Email:        profile.Email,
		}
		if sub, found := submissionByUser[m.UserID]; found {
			entry.SubmissionID = intPtr(sub.ID)
			entry.JerseySize = sub.JerseySize
			entry.Position = sub.Position
			processedSubmissions[sub.ID] = struct{}{}
		}
		unified = append(unified, entry)
		processedUsers[m.UserID] = struct{}{}
	}

	// Pass 2: submissions not consumed above are either roster-only
	// entries (possibly invited) or accounts that never joined.
	for i := range submissions {
		sub := &submissions[i]
		if _, done := processedSubmissions[sub.ID]; done {
			continue
		}
		if sub.UserID == nil {
			entry := models.UnifiedMember{
				Status:       models.MemberStatusRosterOnly,
				DisplayName:  sub.PlayerName,
				SubmissionID: intPtr(sub.ID),
				JerseySize:   sub.JerseySize,
				Position:     sub.Position,
			}
			if invite, found := inviteBySubmission[sub.ID]; found {
				entry.Status = models.MemberStatusInvited
				entry.InviteID = intPtr(invite.ID)
				entry.Email = invite.Email
			}
			unified = append(unified, entry)
			continue
		}
		if _, done := processedUsers[*sub.UserID]; done {
			continue
		}
		profile, ok := profiles[*sub.UserID]
		if !ok {
			return nil, fmt.Errorf("%w: submission %d references user %d", ErrUserNotFound, sub.ID, *sub.UserID)
		}
		unified = append(unified, models.UnifiedMember{
			Status:       models.MemberStatusHasAccount,
			DisplayName:  profile.DisplayName(),
			UserID:       sub.UserID,
			SubmissionID: intPtr(sub.ID),
			Email:        profile.Email,
			JerseySize:   sub.JerseySize,
			Position:     sub.Position,
		})
		processedUsers[*sub.UserID] = struct{}{}
	}

	// Stable order: status rank first, then display name. Re-running
	// on unchanged data yields identical output.
	sort.SliceStable(unified, func(i, j int) bool {
		if unified[i].Status != unified[j].Status {
			return unified[i].Status < unified[j].Status
		}
		return strings.Compare(unified[i].DisplayName, unified[j].DisplayName) < 0
	})

	return unified, nil
}

func (s *rosterService) CreateSubmission(ctx context.Context, input CreateSubmissionInput, currentUserID int) (*models.PlayerInfoSubmission, error) {
	if err := s.requireManager(ctx, input.TeamID, currentUserID); err != nil {
		return nil, err
	}

	submission := &models.PlayerInfoSubmission{
		TeamID:       input.TeamID,
		SubteamID:    input.SubteamID,
		PlayerName:   strings.TrimSpace(input.PlayerName),
		JerseyNumber: input.JerseyNumber,
		JerseySize:   input.JerseySize,
		Position:     input.Position,
	}
	if submission.PlayerName == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrValidationFailed)
	}

	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		if errors.Is(err, repositories.ErrSubmissionInvalid) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	return submission, nil
}

func (s *rosterService) UpdateSubmission(ctx context.Context, submissionID int, input UpdateSubmissionInput, currentUserID int) (*models.PlayerInfoSubmission, error) {
	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission %d: %w", submissionID, err)
	}
	if err := s.requireManager(ctx, submission.TeamID, currentUserID); err != nil {
		return nil, err
	}

	if input.PlayerName != nil {
		name := strings.TrimSpace(*input.PlayerName)
		if name == "" {
			return nil, fmt.Errorf("%w: player name is required", ErrValidationFailed)
		}
		submission.PlayerName = name
	}
	if input.JerseyNumber != nil {
		submission.JerseyNumber = input.JerseyNumber
	}
	if input.JerseySize != nil {
		submission.JerseySize = *input.JerseySize
	}
	if input.Position != nil {
		submission.Position = *input.Position
	}
	if input.SubteamID != nil {
		submission.SubteamID = input.SubteamID
	}

	if err := s.submissionRepo.Update(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to update submission %d: %w", submissionID, err)
	}
	return submission, nil
}

func (s *rosterService) DeleteSubmission(ctx context.Context, submissionID int, currentUserID int) error {
	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return ErrSubmissionNotFound
		}
		return fmt.Errorf("failed to get submission %d: %w", submissionID, err)
	}
	if err := s.requireManager(ctx, submission.TeamID, currentUserID); err != nil {
		return err
	}

	if err := s.submissionRepo.Delete(ctx, submissionID); err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return ErrSubmissionNotFound
		}
		return fmt.Errorf("failed to delete submission %d: %w", submissionID, err)
	}
	return nil
}

// requireManager checks that the caller holds an owner or manager
// membership on the team.
func (s *rosterService) requireManager(ctx context.Context, teamID, userID int) error {
	membership, err := s.membershipRepo.GetByTeamAndUser(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			return ErrForbiddenOperation
		}
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if membership.Role != models.TeamRoleOwner && membership.Role != models.TeamRoleManager {
		return ErrForbiddenOperation
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}
