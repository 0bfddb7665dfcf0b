package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/kitlocker/kitlocker-server/repositories"
)

type fakeDesignRepo struct {
	repositories.DesignRequestRepository
	requests  map[int]*models.DesignRequest
	updateErr error
}

func (f *fakeDesignRepo) GetByID(_ context.Context, id int) (*models.DesignRequest, error) {
	request, ok := f.requests[id]
	if !ok {
		return nil, repositories.ErrDesignRequestNotFound
	}
	copied := *request
	return &copied, nil
}

func (f *fakeDesignRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, from, to models.DesignStatus, feedback *string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	request, ok := f.requests[id]
	if !ok {
		return repositories.ErrDesignRequestNotFound
	}
	if request.Status != from {
		return repositories.ErrDesignStatusConflict
	}
	request.Status = to
	if feedback != nil {
		request.Feedback = feedback
	}
	return nil
}

type fakeHub struct {
	events []string
}

func (f *fakeHub) BroadcastToTeam(_ int, eventType string, _ interface{}) {
	f.events = append(f.events, eventType)
}

func designFixture(status models.DesignStatus, withMockups bool) (*fakeDesignRepo, *fakeMembershipRepo, *fakeTeamRepo, *fakeHub, DesignService) {
	request := &models.DesignRequest{
		ID:          1,
		TeamID:      1,
		RequesterID: 10,
		Status:      status,
	}
	if withMockups {
		key := "design-requests/1/mockups/1.png"
		request.HomeMockupKey = &key
	}

	designs := &fakeDesignRepo{requests: map[int]*models.DesignRequest{1: request}}
	memberships := &fakeMembershipRepo{memberships: []models.TeamMembership{
		{ID: 100, TeamID: 1, UserID: 5, Role: models.TeamRoleOwner},
		{ID: 101, TeamID: 1, UserID: 10, Role: models.TeamRolePlayer},
	}}
	teams := &fakeTeamRepo{teams: map[int]*models.Team{
		1: {ID: 1, Name: "Eagles", TeamType: models.TeamTypeSingle},
	}}
	hub := &fakeHub{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewDesignService(nil, designs, nil, nil, memberships, teams, nil, hub, logger)
	return designs, memberships, teams, hub, svc
}

func TestApproveRequiresMockups(t *testing.T) {
	_, _, _, _, svc := designFixture(models.DesignStatusInReview, false)

	_, err := svc.Approve(context.Background(), 1, 5)
	assert.ErrorIs(t, err, ErrMockupsRequired)
}

func TestApproveFromReviewState(t *testing.T) {
	designs, _, _, hub, svc := designFixture(models.DesignStatusInReview, true)

	request, err := svc.Approve(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, models.DesignStatusApproved, request.Status)
	assert.Equal(t, models.DesignStatusApproved, designs.requests[1].Status)
	assert.Equal(t, []string{EventDesignRequestUpdated}, hub.events)
}

func TestApproveRejectsPendingRequests(t *testing.T) {
	_, _, _, hub, svc := designFixture(models.DesignStatusPending, true)

	_, err := svc.Approve(context.Background(), 1, 5)
	assert.ErrorIs(t, err, ErrDesignInvalidStatusTransition)
	assert.Empty(t, hub.events, "a failed transition must not broadcast")
}

func TestApproveRequiresReviewerRole(t *testing.T) {
	_, _, _, _, svc := designFixture(models.DesignStatusInReview, true)

	// Player membership exists but carries no review rights.
	_, err := svc.Approve(context.Background(), 1, 10)
	assert.ErrorIs(t, err, ErrReviewerRoleRequired)
}

func TestApproveInstitutionRequiresAthleticDirector(t *testing.T) {
	designs, memberships, teams, _, _ := designFixture(models.DesignStatusInReview, true)
	teams.teams[1].TeamType = models.TeamTypeInstitution
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewDesignService(nil, designs, nil, nil, memberships, teams, nil, nil, logger)

	// Team owner without the athletic-director flag may not review.
	_, err := svc.Approve(context.Background(), 1, 5)
	assert.ErrorIs(t, err, ErrReviewerRoleRequired)

	ad := models.InstitutionRoleAthleticDirector
	memberships.memberships = append(memberships.memberships, models.TeamMembership{
		ID: 102, TeamID: 1, UserID: 6, Role: models.TeamRolePlayer, InstitutionRole: &ad,
	})
	request, err := svc.Approve(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, models.DesignStatusApproved, request.Status)
}

func TestRequestChangesRejectsBlankFeedback(t *testing.T) {
	_, _, _, _, svc := designFixture(models.DesignStatusInReview, true)

	for _, feedback := range []string{"", "   ", "\n\t"} {
		_, err := svc.RequestChanges(context.Background(), 1, 5, feedback)
		assert.ErrorIs(t, err, ErrFeedbackRequired, "feedback %q", feedback)
	}
}

func TestRequestChangesPersistsFeedback(t *testing.T) {
	designs, _, _, _, svc := designFixture(models.DesignStatusReady, true)

	request, err := svc.RequestChanges(context.Background(), 1, 5, "  sleeves too long  ")
	require.NoError(t, err)
	assert.Equal(t, models.DesignStatusChangesRequested, request.Status)
	require.NotNil(t, request.Feedback)
	assert.Equal(t, "sleeves too long", *request.Feedback)
	assert.Equal(t, models.DesignStatusChangesRequested, designs.requests[1].Status)
}

func TestTransitionConflictMapsToInvalidTransition(t *testing.T) {
	designs, _, _, _, svc := designFixture(models.DesignStatusInReview, true)
	designs.updateErr = repositories.ErrDesignStatusConflict

	_, err := svc.Reject(context.Background(), 1, 5)
	assert.ErrorIs(t, err, ErrDesignInvalidStatusTransition)
}

func TestRevertApprovalOnlyFromApproved(t *testing.T) {
	_, _, _, _, svc := designFixture(models.DesignStatusInReview, true)
	_, err := svc.RevertApproval(context.Background(), 1, 5)
	assert.ErrorIs(t, err, ErrDesignInvalidStatusTransition)

	designs, _, _, _, svc := designFixture(models.DesignStatusApproved, true)
	request, err := svc.RevertApproval(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, models.DesignStatusReady, request.Status)
	assert.Equal(t, models.DesignStatusReady, designs.requests[1].Status)
}

func TestConfirmProductionOnlyFromApproved(t *testing.T) {
	_, _, _, _, svc := designFixture(models.DesignStatusReady, true)

	// The approved gate fires before any transaction is opened.
	_, err := svc.ConfirmProduction(context.Background(), 1, 5)
	assert.ErrorIs(t, err, ErrDesignInvalidStatusTransition)
}

func TestApproveUnknownRequest(t *testing.T) {
	_, _, _, _, svc := designFixture(models.DesignStatusInReview, true)

	_, err := svc.Approve(context.Background(), 42, 5)
	assert.ErrorIs(t, err, ErrDesignRequestNotFound)
}
