package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/kitlocker/kitlocker-server/repositories"
)

// Fakes embed the repository interface so only the methods a test
// exercises need a body.

type fakeTeamRepo struct {
	repositories.TeamRepository
	teams map[int]*models.Team
}

func (f *fakeTeamRepo) GetByID(_ context.Context, id int) (*models.Team, error) {
	team, ok := f.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return team, nil
}

type fakeMembershipRepo struct {
	repositories.MembershipRepository
	memberships []models.TeamMembership
	err         error
}

func (f *fakeMembershipRepo) ListByTeamID(_ context.Context, teamID int) ([]models.TeamMembership, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.TeamMembership
	for _, m := range f.memberships {
		if m.TeamID == teamID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMembershipRepo) GetByTeamAndUser(_ context.Context, teamID, userID int) (*models.TeamMembership, error) {
	for i := range f.memberships {
		if f.memberships[i].TeamID == teamID && f.memberships[i].UserID == userID {
			return &f.memberships[i], nil
		}
	}
	return nil, repositories.ErrMembershipNotFound
}

type fakeSubmissionRepo struct {
	repositories.SubmissionRepository
	submissions []models.PlayerInfoSubmission
}

func (f *fakeSubmissionRepo) ListByTeamID(_ context.Context, teamID int) ([]models.PlayerInfoSubmission, error) {
	var out []models.PlayerInfoSubmission
	for _, s := range f.submissions {
		if s.TeamID == teamID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeInviteRepo struct {
	repositories.InviteRepository
	invites []models.TeamInvite
}

func (f *fakeInviteRepo) ListPendingByTeamID(_ context.Context, teamID int) ([]models.TeamInvite, error) {
	var out []models.TeamInvite
	for _, i := range f.invites {
		if i.TeamID == teamID && i.Status == models.InviteStatusPending {
			out = append(out, i)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	repositories.UserRepository
	users map[int]*models.User
}

func (f *fakeUserRepo) ListByIDs(_ context.Context, ids []int) (map[int]*models.User, error) {
	out := make(map[int]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func rosterFixture() (*fakeTeamRepo, *fakeMembershipRepo, *fakeSubmissionRepo, *fakeInviteRepo, *fakeUserRepo) {
	teams := &fakeTeamRepo{teams: map[int]*models.Team{
		1: {ID: 1, Name: "Eagles", TeamType: models.TeamTypeSingle},
	}}
	return teams,
		&fakeMembershipRepo{},
		&fakeSubmissionRepo{},
		&fakeInviteRepo{},
		&fakeUserRepo{users: map[int]*models.User{}}
}

func TestListUnifiedMembersMergesMembershipWithSubmission(t *testing.T) {
	teams, memberships, submissions, invites, users := rosterFixture()

	users.users[10] = &models.User{ID: 10, FirstName: "Ana", LastName: "Reyes", Email: "ana@example.com"}
	memberships.memberships = []models.TeamMembership{
		{ID: 100, TeamID: 1, UserID: 10, Role: models.TeamRoleOwner},
	}
	u10 := 10
	submissions.submissions = []models.PlayerInfoSubmission{
		{ID: 200, TeamID: 1, UserID: &u10, PlayerName: "Ana", JerseySize: "M", Position: "Forward"},
		{ID: 201, TeamID: 1, PlayerName: "Bob Carter", JerseySize: "L"},
	}

	svc := NewRosterService(memberships, submissions, invites, users, teams)
	got, err := svc.ListUnifiedMembers(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 2, "one membership plus one linked submission must collapse into a single row")

	active := got[0]
	assert.Equal(t, models.MemberStatusActive, active.Status)
	assert.Equal(t, "Ana Reyes", active.DisplayName)
	require.NotNil(t, active.MembershipID)
	assert.Equal(t, 100, *active.MembershipID)
	require.NotNil(t, active.SubmissionID)
	assert.Equal(t, 200, *active.SubmissionID)
	assert.Equal(t, "M", active.JerseySize)
	assert.Equal(t, "Forward", active.Position)

	rosterOnly := got[1]
	assert.Equal(t, models.MemberStatusRosterOnly, rosterOnly.Status)
	assert.Equal(t, "Bob Carter", rosterOnly.DisplayName)
	assert.Nil(t, rosterOnly.UserID)
	assert.Nil(t, rosterOnly.MembershipID)
}

func TestListUnifiedMembersUpgradesInvitedSubmissions(t *testing.T) {
	teams, memberships, submissions, invites, users := rosterFixture()

	submissions.submissions = []models.PlayerInfoSubmission{
		{ID: 201, TeamID: 1, PlayerName: "Bob Carter", JerseySize: "L"},
	}
	sub201 := 201
	invites.invites = []models.TeamInvite{
		{
			ID:           300,
			TeamID:       1,
			SubmissionID: &sub201,
			Email:        "bob@example.com",
			Status:       models.InviteStatusPending,
			ExpiresAt:    time.Now().Add(24 * time.Hour),
		},
	}

	svc := NewRosterService(memberships, submissions, invites, users, teams)
	got, err := svc.ListUnifiedMembers(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, models.MemberStatusInvited, got[0].Status)
	assert.Equal(t, "bob@example.com", got[0].Email)
	require.NotNil(t, got[0].InviteID)
	assert.Equal(t, 300, *got[0].InviteID)
}

func TestListUnifiedMembersExpiredInviteStaysRosterOnly(t *testing.T) {
	teams, memberships, submissions, invites, users := rosterFixture()

	submissions.submissions = []models.PlayerInfoSubmission{
		{ID: 201, TeamID: 1, PlayerName: "Bob Carter", JerseySize: "L"},
	}
	sub201 := 201
	invites.invites = []models.TeamInvite{
		{
			ID:           300,
			TeamID:       1,
			SubmissionID: &sub201,
			Email:        "bob@example.com",
			Status:       models.InviteStatusPending,
			ExpiresAt:    time.Now().Add(-time.Hour),
		},
	}

	svc := NewRosterService(memberships, submissions, invites, users, teams)
	got, err := svc.ListUnifiedMembers(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.MemberStatusRosterOnly, got[0].Status)
	assert.Nil(t, got[0].InviteID)
}

func TestListUnifiedMembersAccountWithoutMembership(t *testing.T) {
	teams, memberships, submissions, invites, users := rosterFixture()

	users.users[20] = &models.User{ID: 20, FirstName: "Cleo", LastName: "Vance", Email: "cleo@example.com"}
	u20 := 20
	submissions.submissions = []models.PlayerInfoSubmission{
		{ID: 210, TeamID: 1, UserID: &u20, PlayerName: "Cleo", JerseySize: "S"},
	}

	svc := NewRosterService(memberships, submissions, invites, users, teams)
	got, err := svc.ListUnifiedMembers(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.MemberStatusHasAccount, got[0].Status)
	assert.Equal(t, "Cleo Vance", got[0].DisplayName)
}

func TestListUnifiedMembersOrderingIsDeterministic(t *testing.T) {
	teams, memberships, submissions, invites, users := rosterFixture()

	users.users[10] = &models.User{ID: 10, FirstName: "Zoe", LastName: "Adams"}
	users.users[11] = &models.User{ID: 11, FirstName: "Abe", LastName: "King"}
	memberships.memberships = []models.TeamMembership{
		{ID: 100, TeamID: 1, UserID: 10, Role: models.TeamRolePlayer},
		{ID: 101, TeamID: 1, UserID: 11, Role: models.TeamRoleOwner},
	}
	submissions.submissions = []models.PlayerInfoSubmission{
		{ID: 201, TeamID: 1, PlayerName: "Yara"},
		{ID: 202, TeamID: 1, PlayerName: "Mona"},
	}

	svc := NewRosterService(memberships, submissions, invites, users, teams)
	first, err := svc.ListUnifiedMembers(context.Background(), 1)
	require.NoError(t, err)
	second, err := svc.ListUnifiedMembers(context.Background(), 1)
	require.NoError(t, err)

	// Status rank first, then display name; re-running on the same
	// data must yield the same order.
	require.Len(t, first, 4)
	assert.Equal(t, "Abe King", first[0].DisplayName)
	assert.Equal(t, "Zoe Adams", first[1].DisplayName)
	assert.Equal(t, "Mona", first[2].DisplayName)
	assert.Equal(t, "Yara", first[3].DisplayName)
	assert.Equal(t, first, second)
}

func TestListUnifiedMembersFailsClosedOnMissingProfile(t *testing.T) {
	teams, memberships, submissions, invites, users := rosterFixture()

	memberships.memberships = []models.TeamMembership{
		{ID: 100, TeamID: 1, UserID: 99, Role: models.TeamRolePlayer},
	}

	svc := NewRosterService(memberships, submissions, invites, users, teams)
	_, err := svc.ListUnifiedMembers(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListUnifiedMembersFailsClosedOnSourceError(t *testing.T) {
	teams, memberships, submissions, invites, users := rosterFixture()
	memberships.err = assert.AnError

	svc := NewRosterService(memberships, submissions, invites, users, teams)
	got, err := svc.ListUnifiedMembers(context.Background(), 1)
	assert.Error(t, err)
	assert.Nil(t, got, "a partial list must never be returned")
}

func TestListUnifiedMembersUnknownTeam(t *testing.T) {
	teams, memberships, submissions, invites, users := rosterFixture()

	svc := NewRosterService(memberships, submissions, invites, users, teams)
	_, err := svc.ListUnifiedMembers(context.Background(), 42)
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestCreateSubmissionRequiresManagerRole(t *testing.T) {
	teams, memberships, submissions, invites, users := rosterFixture()
	memberships.memberships = []models.TeamMembership{
		{ID: 100, TeamID: 1, UserID: 10, Role: models.TeamRolePlayer},
	}

	svc := NewRosterService(memberships, submissions, invites, users, teams)
	_, err := svc.CreateSubmission(context.Background(), CreateSubmissionInput{
		TeamID:     1,
		PlayerName: "New Player",
		JerseySize: "M",
	}, 10)
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}
