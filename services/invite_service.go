package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/kitlocker/kitlocker-server/repositories"
)

const (
	inviteTokenLength = 16 // bytes, 32 hex characters
	inviteDuration    = 7 * 24 * time.Hour
)

var ErrInviteTokenGeneration = errors.New("failed to generate unique invite token")

type InviteService interface {
	CreateInvite(ctx context.Context, input CreateInviteInput, currentUserID int) (*models.TeamInvite, error)
	GetInviteByToken(ctx context.Context, token string) (*models.TeamInvite, error)
	AcceptInvite(ctx context.Context, token string, currentUserID int) (*models.TeamMembership, error)
	ListPendingInvites(ctx context.Context, teamID int, currentUserID int) ([]models.TeamInvite, error)
	DeleteInvite(ctx context.Context, inviteID int, currentUserID int) error

	// ExpireStaleInvites is run on a schedule from main.
	ExpireStaleInvites(ctx context.Context) (int64, error)
}

type CreateInviteInput struct {
	TeamID       int    `json:"team_id" validate:"required,gt=0"`
	SubmissionID *int   `json:"submission_id,omitempty"`
	Email        string `json:"email" validate:"required,email"`
}

type inviteService struct {
	inviteRepo     repositories.InviteRepository
	teamRepo       repositories.TeamRepository
	membershipRepo repositories.MembershipRepository
	submissionRepo repositories.SubmissionRepository
	userRepo       repositories.UserRepository
	mailer         Mailer
	publicURL      string
	logger         *slog.Logger
}

func NewInviteService(
	inviteRepo repositories.InviteRepository,
	teamRepo repositories.TeamRepository,
	membershipRepo repositories.MembershipRepository,
	submissionRepo repositories.SubmissionRepository,
	userRepo repositories.UserRepository,
	mailer Mailer,
	publicURL string,
	logger *slog.Logger,
) InviteService {
	return &inviteService{
		inviteRepo:     inviteRepo,
		teamRepo:       teamRepo,
		membershipRepo: membershipRepo,
		submissionRepo: submissionRepo,
		userRepo:       userRepo,
		mailer:         mailer,
		publicURL:      publicURL,
		logger:         logger,
	}
}

func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (s *inviteService) CreateInvite(ctx context.Context, input CreateInviteInput, currentUserID int) (*models.TeamInvite, error) {
	team, err := s.teamRepo.GetByID(ctx, input.TeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", input.TeamID, err)
	}
	if err := s.requireOwnerOrManager(ctx, team.ID, currentUserID); err != nil {
		return nil, err
	}
	if input.SubmissionID != nil {
		submission, err := s.submissionRepo.GetByID(ctx, *input.SubmissionID)
		if err != nil {
			if errors.Is(err, repositories.ErrSubmissionNotFound) {
				return nil, ErrSubmissionNotFound
			}
			return nil, fmt.Errorf("failed to get submission %d: %w", *input.SubmissionID, err)
		}
		if submission.UserID != nil {
			return nil, ErrSubmissionHasAccount
		}
	}

	var invite *models.TeamInvite
	maxAttempts := 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		token, err := generateSecureToken(inviteTokenLength)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInviteTokenGeneration, err)
		}

		invite = &models.TeamInvite{
			TeamID:       input.TeamID,
			SubmissionID: input.SubmissionID,
			Email:        strings.ToLower(strings.TrimSpace(input.Email)),
			Token:        token,
			Status:       models.InviteStatusPending,
			ExpiresAt:    time.Now().Add(inviteDuration),
		}
		err = s.inviteRepo.Create(ctx, invite)
		if err == nil {
			s.sendInviteEmail(team, invite)
			return invite, nil
		}
		if !errors.Is(err, repositories.ErrInviteTokenConflict) {
			if errors.Is(err, repositories.ErrInviteTeamInvalid) {
				return nil, ErrTeamNotFound
			}
			return nil, fmt.Errorf("failed to create invite: %w", err)
		}
		// Token collision, retry with a fresh one.
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrInviteTokenGeneration, maxAttempts)
}

func (s *inviteService) GetInviteByToken(ctx context.Context, token string) (*models.TeamInvite, error) {
	invite, err := s.inviteRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrInviteNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to get invite by token: %w", err)
	}
	if invite.Status != models.InviteStatusPending {
		return nil, ErrInviteNotPending
	}
	if time.Now().After(invite.ExpiresAt) {
		return nil, ErrInviteExpired
	}
	return invite, nil
}

func (s *inviteService) AcceptInvite(ctx context.Context, token string, currentUserID int) (*models.TeamMembership, error) {
	invite, err := s.GetInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByID(ctx, currentUserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", currentUserID, err)
	}

	membership := &models.TeamMembership{
		TeamID: invite.TeamID,
		UserID: currentUserID,
		Role:   models.TeamRolePlayer,
	}
	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		switch {
		case errors.Is(err, repositories.ErrMembershipConflict):
			return nil, ErrMembershipConflict
		case errors.Is(err, repositories.ErrMembershipInvalid):
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	// Bind the roster entry to the new account so reconciliation
	// merges the two into one active-member row.
	if invite.SubmissionID != nil {
		if err := s.submissionRepo.LinkUser(ctx, *invite.SubmissionID, currentUserID); err != nil {
			s.logger.Warn("failed to link submission after invite accept",
				slog.Int("invite_id", invite.ID),
				slog.Int("submission_id", *invite.SubmissionID),
				slog.Any("error", err))
		}
	}

	// The membership exists either way; a failed flip here only leaves
	// a pending invite for the sweeper to expire.
	if err := s.inviteRepo.MarkAccepted(ctx, invite.ID); err != nil {
		s.logger.Warn("failed to mark invite accepted",
			slog.Int("invite_id", invite.ID),
			slog.Any("error", err))
	}
	return membership, nil
}

func (s *inviteService) ListPendingInvites(ctx context.Context, teamID int, currentUserID int) ([]models.TeamInvite, error) {
	if err := s.requireOwnerOrManager(ctx, teamID, currentUserID); err != nil {
		return nil, err
	}
	invites, err := s.inviteRepo.ListPendingByTeamID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites for team %d: %w", teamID, err)
	}

	active := make([]models.TeamInvite, 0, len(invites))
	now := time.Now()
	for _, invite := range invites {
		if invite.Pending(now) {
			active = append(active, invite)
		}
	}
	return active, nil
}

func (s *inviteService) DeleteInvite(ctx context.Context, inviteID int, currentUserID int) error {
	invite, err := s.inviteRepo.GetByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, repositories.ErrInviteNotFound) {
			return ErrInviteNotFound
		}
		return fmt.Errorf("failed to get invite %d: %w", inviteID, err)
	}
	if err := s.requireOwnerOrManager(ctx, invite.TeamID, currentUserID); err != nil {
		return err
	}

	if err := s.inviteRepo.Delete(ctx, inviteID); err != nil {
		if errors.Is(err, repositories.ErrInviteNotFound) {
			return ErrInviteNotFound
		}
		return fmt.Errorf("failed to delete invite %d: %w", inviteID, err)
	}
	return nil
}

func (s *inviteService) ExpireStaleInvites(ctx context.Context) (int64, error) {
	return s.inviteRepo.ExpireStale(ctx)
}

func (s *inviteService) sendInviteEmail(team *models.Team, invite *models.TeamInvite) {
	if s.mailer == nil {
		return
	}
	link := fmt.Sprintf("%s/invites/%s", strings.TrimRight(s.publicURL, "/"), invite.Token)
	subject := fmt.Sprintf("You're invited to join %s", team.Name)
	body := fmt.Sprintf(
		"<p>You have been invited to join <strong>%s</strong> on KitLocker.</p>"+
			"<p><a href=%q>Accept your invite</a> before %s.</p>",
		team.Name, link, invite.ExpiresAt.Format("January 2, 2006"),
	)
	if err := s.mailer.Send(invite.Email, subject, body); err != nil {
		// The invite stays valid; the token can still be shared
		// manually from the settings page.
		s.logger.Warn("failed to send invite email",
			slog.Int("invite_id", invite.ID),
			slog.String("email", invite.Email),
			slog.Any("error", err))
	}
}

func (s *inviteService) requireOwnerOrManager(ctx context.Context, teamID, userID int) error {
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
