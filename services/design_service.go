package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/kitlocker/kitlocker-server/repositories"
	"github.com/kitlocker/kitlocker-server/storage"
)

// EventBroadcaster pushes events to a team's realtime room. Satisfied
// by *realtime.Hub.
type EventBroadcaster interface {
	BroadcastToTeam(teamID int, eventType string, payload interface{})
}

const (
	EventDesignRequestUpdated = "design_request_updated"
	EventDesignRequestDeleted = "design_request_deleted"
)

type DesignService interface {
	Create(ctx context.Context, input CreateDesignRequestInput, currentUserID int) (*models.DesignRequest, error)
	GetByID(ctx context.Context, id int) (*models.DesignRequest, error)
	ListByTeamID(ctx context.Context, teamID int) ([]models.DesignRequest, error)

	Approve(ctx context.Context, id, currentUserID int) (*models.DesignRequest, error)
	Reject(ctx context.Context, id, currentUserID int) (*models.DesignRequest, error)
	RevertApproval(ctx context.Context, id, currentUserID int) (*models.DesignRequest, error)
	ConfirmProduction(ctx context.Context, id, currentUserID int) (*models.DesignRequest, error)
	RevertProduction(ctx context.Context, id, currentUserID int) (*models.DesignRequest, error)
	RequestChanges(ctx context.Context, id, currentUserID int, feedback string) (*models.DesignRequest, error)
	SelectDesign(ctx context.Context, id, currentUserID, designID int) (*models.DesignRequest, error)
	Delete(ctx context.Context, id, currentUserID int) error

	UploadMockups(ctx context.Context, id int, uploads []MockupUpload) (*models.DesignRequest, error)

	AddReaction(ctx context.Context, id, currentUserID int, emoji string) error
	RemoveReaction(ctx context.Context, id, currentUserID int, emoji string) error
}

type CreateDesignRequestInput struct {
	TeamID         int    `json:"team_id" validate:"required,gt=0"`
	SubteamID      *int   `json:"subteam_id,omitempty"`
	DesignID       *int   `json:"design_id,omitempty"`
	PrimaryColor   string `json:"primary_color" validate:"required,hexcolor"`
	SecondaryColor string `json:"secondary_color" validate:"required,hexcolor"`
}

// MockupUpload is one admin-provided mockup image. Slot is "home",
// "away" or empty for the free-form gallery.
type MockupUpload struct {
	Filename    string
	ContentType string
	Slot        string
	Reader      io.Reader
}

type designService struct {
	db             *sql.DB
	designRepo     repositories.DesignRequestRepository
	orderRepo      repositories.OrderRepository
	reactionRepo   repositories.ReactionRepository
	membershipRepo repositories.MembershipRepository
	teamRepo       repositories.TeamRepository
	uploader       storage.FileUploader
	hub            EventBroadcaster
	logger         *slog.Logger
}

func NewDesignService(
	db *sql.DB,
	designRepo repositories.DesignRequestRepository,
	orderRepo repositories.OrderRepository,
	reactionRepo repositories.ReactionRepository,
	membershipRepo repositories.MembershipRepository,
	teamRepo repositories.TeamRepository,
	uploader storage.FileUploader,
	hub EventBroadcaster,
	logger *slog.Logger,
) DesignService {
	return &designService{
		db:             db,
		designRepo:     designRepo,
		orderRepo:      orderRepo,
		reactionRepo:   reactionRepo,
		membershipRepo: membershipRepo,
		teamRepo:       teamRepo,
		uploader:       uploader,
		hub:            hub,
		logger:         logger,
	}
}

func (s *designService) Create(ctx context.Context, input CreateDesignRequestInput, currentUserID int) (*models.DesignRequest, error) {
	if _, err := s.membership(ctx, input.TeamID, currentUserID); err != nil {
		return nil, err
	}

	request := &models.DesignRequest{
		TeamID:         input.TeamID,
		SubteamID:      input.SubteamID,
		DesignID:       input.DesignID,
		RequesterID:    currentUserID,
		Status:         models.DesignStatusPending,
		PrimaryColor:   input.PrimaryColor,
		SecondaryColor: input.SecondaryColor,
		MockupKeys:     []string{},
	}
	if err := s.designRepo.Create(ctx, request); err != nil {
		if errors.Is(err, repositories.ErrDesignRequestInvalid) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to create design request: %w", err)
	}
	s.broadcast(request.TeamID, EventDesignRequestUpdated, request)
	return request, nil
}

func (s *designService) GetByID(ctx context.Context, id int) (*models.DesignRequest, error) {
	request, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	reactions, err := s.reactionRepo.CountsByRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count reactions for design request %d: %w", id, err)
	}
	request.Reactions = reactions
	s.resolveMockupURLs(request)
	return request, nil
}

func (s *designService) ListByTeamID(ctx context.Context, teamID int) ([]models.DesignRequest, error) {
	requests, err := s.designRepo.ListByTeamID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list design requests for team %d: %w", teamID, err)
	}
	for i := range requests {
		s.resolveMockupURLs(&requests[i])
	}
	return requests, nil
}

func (s *designService) Approve(ctx context.Context, id, currentUserID int) (*models.DesignRequest, error) {
	request, err := s.getForReview(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}
	if !request.HasMockups() {
		return nil, ErrMockupsRequired
	}
	return s.transition(ctx, request, models.DesignStatusApproved, nil)
}

func (s *designService) Reject(ctx context.Context, id, currentUserID int) (*models.DesignRequest, error) {
	request, err := s.getForReview(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, request, models.DesignStatusRejected, nil)
}

func (s *designService) RevertApproval(ctx context.Context, id, currentUserID int) (*models.DesignRequest, error) {
	request, err := s.getForReview(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.DesignStatusApproved {
		return nil, ErrDesignInvalidStatusTransition
	}
	return s.transition(ctx, request, models.DesignStatusReady, nil)
}

// ConfirmProduction moves an approved request into production and
// creates the production order in the same transaction. The status
// UPDATE is conditional on the approved state, so a concurrent second
// confirmation fails the transition and never creates a second order.
func (s *designService) ConfirmProduction(ctx context.Context, id, currentUserID int) (*models.DesignRequest, error) {
	request, err := s.getForReview(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.DesignStatusApproved {
		return nil, ErrDesignInvalidStatusTransition
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.designRepo.UpdateStatus(ctx, tx, id, request.Status, models.DesignStatusDesignReady, nil); err != nil {
		return nil, s.mapStatusError(err)
	}

	order := &models.Order{
		TeamID:          request.TeamID,
		DesignRequestID: &request.ID,
		Status:          models.OrderStatusInProduction,
	}
	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("failed to create production order for design request %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit production confirmation: %w", err)
	}

	request.Status = models.DesignStatusDesignReady
	s.logger.Info("design request confirmed for production",
		slog.Int("design_request_id", id),
		slog.Int("order_id", order.ID))
	s.broadcast(request.TeamID, EventDesignRequestUpdated, request)
	return request, nil
}

func (s *designService) RevertProduction(ctx context.Context, id, currentUserID int) (*models.DesignRequest, error) {
	request, err := s.getForReview(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.DesignStatusDesignReady {
		return nil, ErrDesignInvalidStatusTransition
	}
	return s.transition(ctx, request, models.DesignStatusApproved, nil)
}

func (s *designService) RequestChanges(ctx context.Context, id, currentUserID int, feedback string) (*models.DesignRequest, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, ErrFeedbackRequired
	}
	request, err := s.getForReview(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, request, models.DesignStatusChangesRequested, &feedback)
}

func (s *designService) SelectDesign(ctx context.Context, id, currentUserID, designID int) (*models.DesignRequest, error) {
	request, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.membership(ctx, request.TeamID, currentUserID); err != nil {
		return nil, err
	}
	if !request.Status.CanTransition(models.DesignStatusPending) {
		return nil, ErrDesignInvalidStatusTransition
	}
	if err := s.designRepo.RebindDesign(ctx, id, designID, request.Status); err != nil {
		return nil, s.mapStatusError(err)
	}
	request.DesignID = &designID
	request.Status = models.DesignStatusPending
	request.Feedback = nil
	s.broadcast(request.TeamID, EventDesignRequestUpdated, request)
	return request, nil
}

func (s *designService) Delete(ctx context.Context, id, currentUserID int) error {
	request, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	membership, err := s.membership(ctx, request.TeamID, currentUserID)
	if err != nil {
		return err
	}
	team, err := s.team(ctx, request.TeamID)
	if err != nil {
		return err
	}
	if request.RequesterID != currentUserID && !membership.CanReviewDesigns(team.TeamType) {
		return ErrForbiddenOperation
	}

	if err := s.designRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrDesignRequestNotFound) {
			return ErrDesignRequestNotFound
		}
		return fmt.Errorf("failed to delete design request %d: %w", id, err)
	}
	s.broadcast(request.TeamID, EventDesignRequestDeleted, map[string]int{"id": id})
	return nil
}

func (s *designService) UploadMockups(ctx context.Context, id int, uploads []MockupUpload) (*models.DesignRequest, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: no files provided", ErrValidationFailed)
	}
	request, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	keys := request.MockupKeys
	homeKey := request.HomeMockupKey
	awayKey := request.AwayMockupKey
	for _, upload := range uploads {
		key := fmt.Sprintf("design-requests/%d/mockups/%d%s", id, time.Now().UnixNano(), path.Ext(upload.Filename))
		if _, err := s.uploader.Upload(ctx, key, upload.ContentType, upload.Reader); err != nil {
			return nil, fmt.Errorf("failed to upload mockup %q: %w", upload.Filename, err)
		}
		switch upload.Slot {
		case "home":
			homeKey = &key
		case "away":
			awayKey = &key
		default:
			keys = append(keys, key)
		}
	}

	if err := s.designRepo.SetMockups(ctx, id, keys, homeKey, awayKey); err != nil {
		return nil, fmt.Errorf("failed to persist mockups for design request %d: %w", id, err)
	}
	request.MockupKeys = keys
	request.HomeMockupKey = homeKey
	request.AwayMockupKey = awayKey
	s.resolveMockupURLs(request)
	s.broadcast(request.TeamID, EventDesignRequestUpdated, request)
	return request, nil
}

func (s *designService) AddReaction(ctx context.Context, id, currentUserID int, emoji string) error {
	if strings.TrimSpace(emoji) == "" {
		return fmt.Errorf("%w: emoji is required", ErrValidationFailed)
	}
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	reaction := &models.DesignRequestReaction{
		DesignRequestID: id,
		UserID:          currentUserID,
		Emoji:           emoji,
	}
	if err := s.reactionRepo.Add(ctx, reaction); err != nil {
		switch {
		case errors.Is(err, repositories.ErrReactionConflict):
			return ErrReactionConflict
		case errors.Is(err, repositories.ErrReactionInvalid):
			return ErrDesignRequestNotFound
		}
		return fmt.Errorf("failed to add reaction: %w", err)
	}
	return nil
}

func (s *designService) RemoveReaction(ctx context.Context, id, currentUserID int, emoji string) error {
	if err := s.reactionRepo.Remove(ctx, id, currentUserID, emoji); err != nil {
		if errors.Is(err, repositories.ErrReactionNotFound) {
			return ErrReactionNotFound
		}
		return fmt.Errorf("failed to remove reaction: %w", err)
	}
	return nil
}

func (s *designService) get(ctx context.Context, id int) (*models.DesignRequest, error) {
	request, err := s.designRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrDesignRequestNotFound) {
			return nil, ErrDesignRequestNotFound
		}
		return nil, fmt.Errorf("failed to get design request %d: %w", id, err)
	}
	return request, nil
}

// getForReview loads the request and verifies the caller may make
// reviewer decisions on it: athletic director on institutions, owner
// or manager on single teams. The check happens server-side on every
// mutation; hiding buttons client-side is not enforcement.
func (s *designService) getForReview(ctx context.Context, id, currentUserID int) (*models.DesignRequest, error) {
	request, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	membership, err := s.membership(ctx, request.TeamID, currentUserID)
	if err != nil {
		return nil, err
	}
	team, err := s.team(ctx, request.TeamID)
	if err != nil {
		return nil, err
	}
	if !membership.CanReviewDesigns(team.TeamType) {
		return nil, ErrReviewerRoleRequired
	}
	return request, nil
}

func (s *designService) transition(ctx context.Context, request *models.DesignRequest, to models.DesignStatus, feedback *string) (*models.DesignRequest, error) {
	if !request.Status.CanTransition(to) {
		return nil, ErrDesignInvalidStatusTransition
	}
	if err := s.designRepo.UpdateStatus(ctx, nil, request.ID, request.Status, to, feedback); err != nil {
		return nil, s.mapStatusError(err)
	}
	request.Status = to
	if feedback != nil {
		request.Feedback = feedback
	}
	s.broadcast(request.TeamID, EventDesignRequestUpdated, request)
	return request, nil
}

func (s *designService) mapStatusError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrDesignRequestNotFound):
		return ErrDesignRequestNotFound
	case errors.Is(err, repositories.ErrDesignStatusConflict):
		return ErrDesignInvalidStatusTransition
	}
	return err
}

func (s *designService) membership(ctx context.Context, teamID, userID int) (*models.TeamMembership, error) {
	membership, err := s.membershipRepo.GetByTeamAndUser(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			return nil, ErrForbiddenOperation
		}
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	return membership, nil
}

func (s *designService) team(ctx context.Context, teamID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}
	return team, nil
}

func (s *designService) resolveMockupURLs(request *models.DesignRequest) {
	if s.uploader == nil {
		return
	}
	if len(request.MockupKeys) > 0 {
		request.MockupURLs = make([]string, 0, len(request.MockupKeys))
		for _, key := range request.MockupKeys {
			request.MockupURLs = append(request.MockupURLs, s.uploader.GetPublicURL(key))
		}
	}
	if request.HomeMockupKey != nil {
		url := s.uploader.GetPublicURL(*request.HomeMockupKey)
		request.HomeMockupURL = &url
	}
	if request.AwayMockupKey != nil {
		url := s.uploader.GetPublicURL(*request.AwayMockupKey)
		request.AwayMockupURL = &url
	}
}

func (s *designService) broadcast(teamID int, eventType string, payload interface{}) {
	if s.hub != nil {
		s.hub.BroadcastToTeam(teamID, eventType, payload)
	}
}
