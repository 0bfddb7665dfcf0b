package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/kitlocker/kitlocker-server/repositories"
	"golang.org/x/sync/errgroup"
)

const recentActivityLimit = 10

type InstitutionService interface {
	// ListPrograms groups the institution's subteams by sport, in
	// discovery order, and appends empty placeholder programs for
	// declared sports without a subteam yet.
	ListPrograms(ctx context.Context, institutionID int) ([]models.SportProgram, error)

	// ResolveRole maps a user to exactly one institution role via the
	// priority chain: athletic director, head coach, assistant,
	// player.
	ResolveRole(ctx context.Context, institutionID, userID int) (*models.ResolvedInstitutionRole, error)

	CreateSubteam(ctx context.Context, input CreateSubteamInput, currentUserID int) (*models.Subteam, error)
	AssignCoach(ctx context.Context, subteamID int, coachUserID *int, currentUserID int) error

	Overview(ctx context.Context, slug string) (*models.InstitutionOverview, error)
}

type CreateSubteamInput struct {
	InstitutionID int    `json:"institution_id" validate:"required,gt=0"`
	Name          string `json:"name" validate:"required"`
	Sport         string `json:"sport" validate:"required"`
	CoachUserID   *int   `json:"coach_user_id,omitempty"`
}

type institutionService struct {
	teamRepo       repositories.TeamRepository
	subteamRepo    repositories.SubteamRepository
	membershipRepo repositories.MembershipRepository
	submissionRepo repositories.SubmissionRepository
	orderRepo      repositories.OrderRepository
	designRepo     repositories.DesignRequestRepository
}

func NewInstitutionService(
	teamRepo repositories.TeamRepository,
	subteamRepo repositories.SubteamRepository,
	membershipRepo repositories.MembershipRepository,
	submissionRepo repositories.SubmissionRepository,
	orderRepo repositories.OrderRepository,
	designRepo repositories.DesignRequestRepository,
) InstitutionService {
	return &institutionService{
		teamRepo:       teamRepo,
		subteamRepo:    subteamRepo,
		membershipRepo: membershipRepo,
		submissionRepo: submissionRepo,
		orderRepo:      orderRepo,
		designRepo:     designRepo,
	}
}

func (s *institutionService) ListPrograms(ctx context.Context, institutionID int) ([]models.SportProgram, error) {
	institution, err := s.institution(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	var (
		subteams []models.Subteam
		counts   map[int]int
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subteams, err = s.subteamRepo.ListByInstitutionID(gCtx, institutionID)
		if err != nil {
			return fmt.Errorf("failed to list subteams: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		counts, err = s.submissionRepo.CountBySubteams(gCtx, institutionID)
		if err != nil {
			return fmt.Errorf("failed to count subteam members: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Map keyed by sport slug; insertion order preserved by the index
	// slice so output order is subteam discovery order, then the
	// declared sports without a subteam.
	programIndex := make(map[string]int)
	programs := make([]models.SportProgram, 0, len(subteams))
	for _, subteam := range subteams {
		subteam.MemberCount = counts[subteam.ID]
		key := sportKey(subteam.Sport)
		idx, ok := programIndex[key]
		if !ok {
			idx = len(programs)
			programIndex[key] = idx
			programs = append(programs, models.SportProgram{Sport: subteam.Sport})
		}
		programs[idx].Subteams = append(programs[idx].Subteams, subteam)
	}
	for _, sport := range institution.Sports {
		key := sportKey(sport)
		if _, ok := programIndex[key]; ok {
			continue
		}
		programIndex[key] = len(programs)
		programs = append(programs, models.SportProgram{
			Sport:    sport,
			Subteams: []models.Subteam{},
			Empty:    true,
		})
	}
	return programs, nil
}

func (s *institutionService) ResolveRole(ctx context.Context, institutionID, userID int) (*models.ResolvedInstitutionRole, error) {
	membership, err := s.membershipRepo.GetByTeamAndUser(ctx, institutionID, userID)
	if err != nil && !errors.Is(err, repositories.ErrMembershipNotFound) {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	if membership != nil && membership.InstitutionRole != nil &&
		*membership.InstitutionRole == models.InstitutionRoleAthleticDirector {
		return &models.ResolvedInstitutionRole{
			Role: models.InstitutionRoleAthleticDirector,
			Permissions: models.InstitutionPermissions{
				CanCreatePrograms:       true,
				CanCreateDesignRequests: true,
				CanManageOrders:         true,
				CanViewAllPrograms:      true,
			},
		}, nil
	}

	coached, err := s.subteamRepo.ListByCoach(ctx, institutionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list coached subteams: %w", err)
	}
	if len(coached) > 0 {
		ids := make([]int, 0, len(coached))
		for _, subteam := range coached {
			ids = append(ids, subteam.ID)
		}
		return &models.ResolvedInstitutionRole{
			Role:       models.InstitutionRoleCoach,
			SubteamIDs: ids,
			Permissions: models.InstitutionPermissions{
				CanCreateDesignRequests: true,
				CanManageOrders:         true,
			},
		}, nil
	}

	if membership != nil && membership.InstitutionRole != nil &&
		*membership.InstitutionRole == models.InstitutionRoleAssistant {
		return &models.ResolvedInstitutionRole{
			Role: models.InstitutionRoleAssistant,
			Permissions: models.InstitutionPermissions{
				CanViewAllPrograms: true,
			},
		}, nil
	}

	return &models.ResolvedInstitutionRole{
		Role:        models.InstitutionRolePlayer,
		Permissions: models.InstitutionPermissions{},
	}, nil
}

func (s *institutionService) CreateSubteam(ctx context.Context, input CreateSubteamInput, currentUserID int) (*models.Subteam, error) {
	institution, err := s.institution(ctx, input.InstitutionID)
	if err != nil {
		return nil, err
	}

	resolved, err := s.ResolveRole(ctx, input.InstitutionID, currentUserID)
	if err != nil {
		return nil, err
	}
	if !resolved.Permissions.CanCreatePrograms {
		return nil, ErrForbiddenOperation
	}

	sport := strings.TrimSpace(input.Sport)
	if !declaresSport(institution.Sports, sport) {
		return nil, ErrSportNotDeclared
	}

	subteam := &models.Subteam{
		InstitutionID: input.InstitutionID,
		Name:          strings.TrimSpace(input.Name),
		Sport:         sport,
		CoachUserID:   input.CoachUserID,
	}
	if subteam.Name == "" {
		return nil, fmt.Errorf("%w: program name is required", ErrValidationFailed)
	}
	if err := s.subteamRepo.Create(ctx, subteam); err != nil {
		if errors.Is(err, repositories.ErrSubteamInvalid) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to create subteam: %w", err)
	}
	return subteam, nil
}

func (s *institutionService) AssignCoach(ctx context.Context, subteamID int, coachUserID *int, currentUserID int) error {
	subteam, err := s.subteamRepo.GetByID(ctx, subteamID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubteamNotFound) {
			return ErrSubteamNotFound
		}
		return fmt.Errorf("failed to get subteam %d: %w", subteamID, err)
	}

	resolved, err := s.ResolveRole(ctx, subteam.InstitutionID, currentUserID)
	if err != nil {
		return err
	}
	if !resolved.Permissions.CanCreatePrograms {
		return ErrForbiddenOperation
	}

	if err := s.subteamRepo.AssignCoach(ctx, subteamID, coachUserID); err != nil {
		if errors.Is(err, repositories.ErrSubteamInvalid) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to assign coach: %w", err)
	}
	return nil
}

func (s *institutionService) Overview(ctx context.Context, slug string) (*models.InstitutionOverview, error) {
	team, err := s.teamRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get institution %q: %w", slug, err)
	}
	if !team.IsInstitution() {
		return nil, ErrNotAnInstitution
	}

	programs, err := s.ListPrograms(ctx, team.ID)
	if err != nil {
		return nil, err
	}

	var (
		orders   []models.Order
		paid     map[int]int
		activity []models.DesignRequest
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.orderRepo.ListByTeamID(gCtx, team.ID)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		paid, err = s.orderRepo.PaidTotals(gCtx, team.ID)
		if err != nil {
			return fmt.Errorf("failed to sum payments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		activity, err = s.designRepo.ListRecentByTeamID(gCtx, team.ID, recentActivityLimit)
		if err != nil {
			return fmt.Errorf("failed to list recent design requests: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	open := make([]models.Order, 0, len(orders))
	for _, order := range orders {
		switch order.Status {
		case models.OrderStatusDelivered, models.OrderStatusCancelled:
			continue
		}
		order.PaidCents = paid[order.ID]
		open = append(open, order)
	}

	return &models.InstitutionOverview{
		Institution:    team,
		Programs:       programs,
		OpenOrders:     open,
		RecentActivity: activity,
	}, nil
}

func (s *institutionService) institution(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", id, err)
	}
	if !team.IsInstitution() {
		return nil, ErrNotAnInstitution
	}
	return team, nil
}

func sportKey(sport string) string {
	return strings.ToLower(strings.TrimSpace(sport))
}

func declaresSport(declared []string, sport string) bool {
	for _, s := range declared {
		if sportKey(s) == sportKey(sport) {
			return true
		}
	}
	return false
}
