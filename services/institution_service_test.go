package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/kitlocker/kitlocker-server/repositories"
)

type fakeSubteamRepo struct {
	repositories.SubteamRepository
	subteams []models.Subteam
}

func (f *fakeSubteamRepo) ListByInstitutionID(_ context.Context, institutionID int) ([]models.Subteam, error) {
	var out []models.Subteam
	for _, s := range f.subteams {
		if s.InstitutionID == institutionID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubteamRepo) ListByCoach(_ context.Context, institutionID, userID int) ([]models.Subteam, error) {
	var out []models.Subteam
	for _, s := range f.subteams {
		if s.InstitutionID == institutionID && s.CoachUserID != nil && *s.CoachUserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubmissionRepo) CountBySubteams(_ context.Context, _ int) (map[int]int, error) {
	counts := make(map[int]int)
	for _, s := range f.submissions {
		if s.SubteamID != nil {
			counts[*s.SubteamID]++
		}
	}
	return counts, nil
}

func institutionFixture() (*fakeTeamRepo, *fakeSubteamRepo, *fakeMembershipRepo, *fakeSubmissionRepo) {
	teams := &fakeTeamRepo{teams: map[int]*models.Team{
		1: {
			ID:       1,
			Name:     "Riverside High",
			Slug:     "riverside-high",
			TeamType: models.TeamTypeInstitution,
			Sports:   []string{"Basketball", "Soccer", "Volleyball"},
		},
	}}
	return teams, &fakeSubteamRepo{}, &fakeMembershipRepo{}, &fakeSubmissionRepo{}
}

func TestListProgramsGroupsBySportWithPlaceholders(t *testing.T) {
	teams, subteams, memberships, submissions := institutionFixture()

	coach := 7
	subteams.subteams = []models.Subteam{
		{ID: 1, InstitutionID: 1, Name: "Varsity Basketball", Sport: "Basketball", CoachUserID: &coach},
		{ID: 2, InstitutionID: 1, Name: "JV Basketball", Sport: "basketball"},
		{ID: 3, InstitutionID: 1, Name: "Varsity Soccer", Sport: "Soccer"},
	}
	sub1, sub2 := 1, 2
	submissions.submissions = []models.PlayerInfoSubmission{
		{ID: 10, TeamID: 1, SubteamID: &sub1},
		{ID: 11, TeamID: 1, SubteamID: &sub1},
		{ID: 12, TeamID: 1, SubteamID: &sub2},
	}

	svc := NewInstitutionService(teams, subteams, memberships, submissions, nil, nil)
	programs, err := svc.ListPrograms(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, programs, 3)

	// Discovery order first, then declared sports without a subteam.
	basketball := programs[0]
	assert.Equal(t, "Basketball", basketball.Sport)
	assert.False(t, basketball.Empty)
	require.Len(t, basketball.Subteams, 2, "sport grouping must be case-insensitive")
	assert.Equal(t, 2, basketball.Subteams[0].MemberCount)
	assert.Equal(t, 1, basketball.Subteams[1].MemberCount)

	soccer := programs[1]
	assert.Equal(t, "Soccer", soccer.Sport)
	require.Len(t, soccer.Subteams, 1)
	assert.Equal(t, 0, soccer.Subteams[0].MemberCount)

	volleyball := programs[2]
	assert.Equal(t, "Volleyball", volleyball.Sport)
	assert.True(t, volleyball.Empty)
	assert.Empty(t, volleyball.Subteams)
}

func TestListProgramsRejectsSingleTeams(t *testing.T) {
	teams, subteams, memberships, submissions := institutionFixture()
	teams.teams[2] = &models.Team{ID: 2, Name: "Eagles", TeamType: models.TeamTypeSingle}

	svc := NewInstitutionService(teams, subteams, memberships, submissions, nil, nil)
	_, err := svc.ListPrograms(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotAnInstitution)
}

func TestResolveRolePriorityChain(t *testing.T) {
	teams, subteams, memberships, submissions := institutionFixture()

	ad := models.InstitutionRoleAthleticDirector
	assistant := models.InstitutionRoleAssistant
	coachID := 7
	memberships.memberships = []models.TeamMembership{
		{ID: 1, TeamID: 1, UserID: 5, Role: models.TeamRoleOwner, InstitutionRole: &ad},
		{ID: 2, TeamID: 1, UserID: 6, Role: models.TeamRolePlayer, InstitutionRole: &assistant},
		{ID: 3, TeamID: 1, UserID: 7, Role: models.TeamRolePlayer, InstitutionRole: &assistant},
		{ID: 4, TeamID: 1, UserID: 8, Role: models.TeamRolePlayer},
	}
	subteams.subteams = []models.Subteam{
		{ID: 1, InstitutionID: 1, Name: "Varsity Basketball", Sport: "Basketball", CoachUserID: &coachID},
	}

	svc := NewInstitutionService(teams, subteams, memberships, submissions, nil, nil)

	director, err := svc.ResolveRole(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, models.InstitutionRoleAthleticDirector, director.Role)
	assert.True(t, director.Permissions.CanCreatePrograms)
	assert.True(t, director.Permissions.CanViewAllPrograms)

	// Coaching a subteam outranks an assistant membership row.
	coach, err := svc.ResolveRole(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, models.InstitutionRoleCoach, coach.Role)
	assert.Equal(t, []int{1}, coach.SubteamIDs)
	assert.True(t, coach.Permissions.CanCreateDesignRequests)
	assert.False(t, coach.Permissions.CanCreatePrograms)

	helper, err := svc.ResolveRole(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, models.InstitutionRoleAssistant, helper.Role)
	assert.True(t, helper.Permissions.CanViewAllPrograms)
	assert.False(t, helper.Permissions.CanManageOrders)

	player, err := svc.ResolveRole(context.Background(), 1, 8)
	require.NoError(t, err)
	assert.Equal(t, models.InstitutionRolePlayer, player.Role)
	assert.Equal(t, models.InstitutionPermissions{}, player.Permissions)

	// Every user resolves to some role, member or not.
	stranger, err := svc.ResolveRole(context.Background(), 1, 99)
	require.NoError(t, err)
	assert.Equal(t, models.InstitutionRolePlayer, stranger.Role)
}

func TestCreateSubteamRequiresDeclaredSport(t *testing.T) {
	teams, subteams, memberships, submissions := institutionFixture()

	ad := models.InstitutionRoleAthleticDirector
	memberships.memberships = []models.TeamMembership{
		{ID: 1, TeamID: 1, UserID: 5, Role: models.TeamRoleOwner, InstitutionRole: &ad},
	}

	svc := NewInstitutionService(teams, subteams, memberships, submissions, nil, nil)
	_, err := svc.CreateSubteam(context.Background(), CreateSubteamInput{
		InstitutionID: 1,
		Name:          "Varsity Hockey",
		Sport:         "Hockey",
	}, 5)
	assert.ErrorIs(t, err, ErrSportNotDeclared)
}

func TestCreateSubteamForbiddenForNonDirectors(t *testing.T) {
	teams, subteams, memberships, submissions := institutionFixture()

	memberships.memberships = []models.TeamMembership{
		{ID: 1, TeamID: 1, UserID: 8, Role: models.TeamRolePlayer},
	}

	svc := NewInstitutionService(teams, subteams, memberships, submissions, nil, nil)
	_, err := svc.CreateSubteam(context.Background(), CreateSubteamInput{
		InstitutionID: 1,
		Name:          "Varsity Soccer",
		Sport:         "Soccer",
	}, 8)
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}
