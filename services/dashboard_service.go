package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/kitlocker/kitlocker-server/repositories"
)

// DashboardService aggregates admin-facing counters.
type DashboardService interface {
	GetStats(ctx context.Context) (*models.DashboardStats, error)
}

type dashboardService struct {
	teamRepo       repositories.TeamRepository
	membershipRepo repositories.MembershipRepository
	designRepo     repositories.DesignRequestRepository
	orderRepo      repositories.OrderRepository
}

func NewDashboardService(
	teamRepo repositories.TeamRepository,
	membershipRepo repositories.MembershipRepository,
	designRepo repositories.DesignRequestRepository,
	orderRepo repositories.OrderRepository,
) DashboardService {
	return &dashboardService{
		teamRepo:       teamRepo,
		membershipRepo: membershipRepo,
		designRepo:     designRepo,
		orderRepo:      orderRepo,
	}
}

func (s *dashboardService) GetStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.teamRepo.Count(gctx)
		if err != nil {
			return fmt.Errorf("failed to count teams: %w", err)
		}
		stats.TeamsTotal = n
		return nil
	})
	g.Go(func() error {
		n, err := s.membershipRepo.Count(gctx)
		if err != nil {
			return fmt.Errorf("failed to count memberships: %w", err)
		}
		stats.MembershipsTotal = n
		return nil
	})
	g.Go(func() error {
		n, err := s.designRepo.CountOpen(gctx)
		if err != nil {
			return fmt.Errorf("failed to count open design requests: %w", err)
		}
		stats.OpenDesignRequests = n
		return nil
	})
	g.Go(func() error {
		n, err := s.orderRepo.CountByStatus(gctx, models.OrderStatusInProduction)
		if err != nil {
			return fmt.Errorf("failed to count orders in production: %w", err)
		}
		stats.OrdersInProduction = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}
