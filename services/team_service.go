package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/kitlocker/kitlocker-server/repositories"
	"github.com/kitlocker/kitlocker-server/storage"
	"github.com/kitlocker/kitlocker-server/utils"
)

type TeamService interface {
	CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error)
	GetTeamByID(ctx context.Context, id int) (*models.Team, error)
	GetTeamBySlug(ctx context.Context, slug string) (*models.Team, error)
	ListTeamsForUser(ctx context.Context, userID int) ([]models.Team, error)
	UpdateTeamSettings(ctx context.Context, teamID int, input UpdateTeamInput, currentUserID int) (*models.Team, error)
	UploadLogo(ctx context.Context, teamID int, filename, contentType string, file io.Reader, currentUserID int) (*models.Team, error)

	AddMember(ctx context.Context, teamID, userID int, role models.TeamRole, institutionRole *models.InstitutionRole, currentUserID int) (*models.TeamMembership, error)
	ChangeMemberRole(ctx context.Context, membershipID int, role models.TeamRole, institutionRole *models.InstitutionRole, currentUserID int) error
	RemoveMember(ctx context.Context, membershipID int, currentUserID int) error
}

type CreateTeamInput struct {
	Name           string          `json:"name" validate:"required"`
	Sport          string          `json:"sport"`
	TeamType       models.TeamType `json:"team_type" validate:"required,oneof=single_team institution"`
	PrimaryColor   string          `json:"primary_color"`
	SecondaryColor string          `json:"secondary_color"`
	Sports         []string        `json:"sports,omitempty"`

	// Set by the handler from the authenticated session.
	CreatorID int `json:"-"`
}

type UpdateTeamInput struct {
	Name           *string  `json:"name,omitempty"`
	Sport          *string  `json:"sport,omitempty"`
	PrimaryColor   *string  `json:"primary_color,omitempty"`
	SecondaryColor *string  `json:"secondary_color,omitempty"`
	Sports         []string `json:"sports,omitempty"`
}

type teamService struct {
	teamRepo       repositories.TeamRepository
	membershipRepo repositories.MembershipRepository
	userRepo       repositories.UserRepository
	uploader       storage.FileUploader
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	membershipRepo repositories.MembershipRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
) TeamService {
	return &teamService{
		teamRepo:       teamRepo,
		membershipRepo: membershipRepo,
		userRepo:       userRepo,
		uploader:       uploader,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	team := &models.Team{
		Name:           name,
		Slug:           utils.Slugify(name),
		Sport:          input.Sport,
		TeamType:       input.TeamType,
		PrimaryColor:   input.PrimaryColor,
		SecondaryColor: input.SecondaryColor,
		OwnerID:        input.CreatorID,
		Sports:         input.Sports,
	}
	if team.TeamType == "" {
		team.TeamType = models.TeamTypeSingle
	}

	if err := s.teamRepo.Create(ctx, team); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTeamSlugConflict):
			return nil, ErrTeamSlugConflict
		case errors.Is(err, repositories.ErrTeamOwnerInvalid):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	// The creator becomes the owner membership. Institutions also get
	// the athletic-director flag so reviewer gating works from day one.
	membership := &models.TeamMembership{
		TeamID: team.ID,
		UserID: input.CreatorID,
		Role:   models.TeamRoleOwner,
	}
	if team.IsInstitution() {
		ad := models.InstitutionRoleAthleticDirector
		membership.InstitutionRole = &ad
	}
	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		return nil, fmt.Errorf("failed to create owner membership for team %d: %w", team.ID, err)
	}

	s.resolveLogoURL(team)
	return team, nil
}

func (s *teamService) GetTeamByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", id, err)
	}
	s.resolveLogoURL(team)
	return team, nil
}

func (s *teamService) GetTeamBySlug(ctx context.Context, slug string) (*models.Team, error) {
	team, err := s.teamRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %q: %w", slug, err)
	}
	s.resolveLogoURL(team)
	return team, nil
}

func (s *teamService) ListTeamsForUser(ctx context.Context, userID int) ([]models.Team, error) {
	teams, err := s.teamRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for user %d: %w", userID, err)
	}
	for i := range teams {
		s.resolveLogoURL(&teams[i])
	}
	return teams, nil
}

func (s *teamService) UpdateTeamSettings(ctx context.Context, teamID int, input UpdateTeamInput, currentUserID int) (*models.Team, error) {
	team, err := s.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrManager(ctx, teamID, currentUserID); err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrTeamNameRequired
		}
		team.Name = name
		team.Slug = utils.Slugify(name)
	}
	if input.Sport != nil {
		team.Sport = *input.Sport
	}
	if input.PrimaryColor != nil {
		team.PrimaryColor = *input.PrimaryColor
	}
	if input.SecondaryColor != nil {
		team.SecondaryColor = *input.SecondaryColor
	}
	if input.Sports != nil {
		team.Sports = input.Sports
	}

	if err := s.teamRepo.Update(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamSlugConflict) {
			return nil, ErrTeamSlugConflict
		}
		return nil, fmt.Errorf("failed to update team %d: %w", teamID, err)
	}
	s.resolveLogoURL(team)
	return team, nil
}

func (s *teamService) UploadLogo(ctx context.Context, teamID int, filename, contentType string, file io.Reader, currentUserID int) (*models.Team, error) {
	team, err := s.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrManager(ctx, teamID, currentUserID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("teams/%d/logo/%d%s", teamID, time.Now().UnixNano(), path.Ext(filename))
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload logo for team %d: %w", teamID, err)
	}

	oldKey := team.LogoKey
	if err := s.teamRepo.UpdateLogoKey(ctx, teamID, &key); err != nil {
		return nil, fmt.Errorf("failed to persist logo key for team %d: %w", teamID, err)
	}
	if oldKey != nil {
		// Best effort; an orphaned object is not worth failing the
		// request over.
		_ = s.uploader.Delete(ctx, *oldKey)
	}

	team.LogoKey = &key
	s.resolveLogoURL(team)
	return team, nil
}

func (s *teamService) AddMember(ctx context.Context, teamID, userID int, role models.TeamRole, institutionRole *models.InstitutionRole, currentUserID int) (*models.TeamMembership, error) {
	if err := s.requireOwnerOrManager(ctx, teamID, currentUserID); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	if role == "" {
		role = models.TeamRolePlayer
	}
	membership := &models.TeamMembership{
		TeamID:          teamID,
		UserID:          userID,
		Role:            role,
		InstitutionRole: institutionRole,
	}
	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		switch {
		case errors.Is(err, repositories.ErrMembershipConflict):
			return nil, ErrMembershipConflict
		case errors.Is(err, repositories.ErrMembershipInvalid):
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	return membership, nil
}

func (s *teamService) ChangeMemberRole(ctx context.Context, membershipID int, role models.TeamRole, institutionRole *models.InstitutionRole, currentUserID int) error {
	membership, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			return ErrMembershipNotFound
		}
		return fmt.Errorf("failed to get membership %d: %w", membershipID, err)
	}
	if err := s.requireOwnerOrManager(ctx, membership.TeamID, currentUserID); err != nil {
		return err
	}
	if membership.Role == models.TeamRoleOwner && role != models.TeamRoleOwner {
		return ErrOwnerRemovalForbidden
	}

	if err := s.membershipRepo.UpdateRole(ctx, membershipID, role, institutionRole); err != nil {
		return fmt.Errorf("failed to update membership %d: %w", membershipID, err)
	}
	return nil
}

func (s *teamService) RemoveMember(ctx context.Context, membershipID int, currentUserID int) error {
	membership, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			return ErrMembershipNotFound
		}
		return fmt.Errorf("failed to get membership %d: %w", membershipID, err)
	}
	if membership.Role == models.TeamRoleOwner {
		return ErrOwnerRemovalForbidden
	}

	// Members may leave on their own; anyone else needs owner or
	// manager rights.
	if membership.UserID != currentUserID {
		if err := s.requireOwnerOrManager(ctx, membership.TeamID, currentUserID); err != nil {
			return err
		}
	}

	if err := s.membershipRepo.Delete(ctx, membershipID); err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			return ErrMembershipNotFound
		}
		return fmt.Errorf("failed to delete membership %d: %w", membershipID, err)
	}
	return nil
}

func (s *teamService) requireOwnerOrManager(ctx context.Context, teamID, userID int) error {
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

func (s *teamService) resolveLogoURL(team *models.Team) {
	if s.uploader == nil || team.LogoKey == nil {
		return
	}
	url := s.uploader.GetPublicURL(*team.LogoKey)
	team.LogoURL = &url
}
