package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/kitlocker/kitlocker-server/repositories"
)

type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput, currentUserID int) (*models.Order, error)
	GetOrder(ctx context.Context, id int) (*models.Order, error)
	ListTeamOrders(ctx context.Context, teamID int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id int, to models.OrderStatus, currentUserID int) (*models.Order, error)
	RecordContribution(ctx context.Context, input ContributionInput) (*models.PaymentContribution, error)
}

type CreateOrderInput struct {
	TeamID          int              `json:"team_id" validate:"required,gt=0"`
	DesignRequestID *int             `json:"design_request_id,omitempty"`
	Items           []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}

type OrderItemInput struct {
	ProductID  int    `json:"product_id" validate:"required,gt=0"`
	PlayerName string `json:"player_name" validate:"required"`
	Size       string `json:"size" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

type ContributionInput struct {
	OrderID     int    `json:"order_id" validate:"required,gt=0"`
	PayerName   string `json:"payer_name" validate:"required"`
	PayerEmail  string `json:"payer_email" validate:"required,email"`
	AmountCents int    `json:"amount_cents" validate:"required,gt=0"`
	Method      string `json:"method" validate:"required"`
}

type orderService struct {
	db             *sql.DB
	orderRepo      repositories.OrderRepository
	productRepo    repositories.ProductRepository
	membershipRepo repositories.MembershipRepository
}

func NewOrderService(
	db *sql.DB,
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	membershipRepo repositories.MembershipRepository,
) OrderService {
	return &orderService{
		db:             db,
		orderRepo:      orderRepo,
		productRepo:    productRepo,
		membershipRepo: membershipRepo,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput, currentUserID int) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, ErrOrderEmpty
	}
	if err := s.requireOwnerOrManager(ctx, input.TeamID, currentUserID); err != nil {
		return nil, err
	}

	// Unit prices come from the catalog at order time, never from the
	// client.
	items := make([]models.OrderItem, 0, len(input.Items))
	total := 0
	for _, itemInput := range input.Items {
		product, err := s.productRepo.GetByID(ctx, itemInput.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrProductNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, fmt.Errorf("failed to get product %d: %w", itemInput.ProductID, err)
		}
		items = append(items, models.OrderItem{
			ProductID:      product.ID,
			PlayerName:     strings.TrimSpace(itemInput.PlayerName),
			Size:           itemInput.Size,
			Quantity:       itemInput.Quantity,
			UnitPriceCents: product.BasePriceCents,
		})
		total += product.BasePriceCents * itemInput.Quantity
	}

	order := &models.Order{
		TeamID:          input.TeamID,
		DesignRequestID: input.DesignRequestID,
		Status:          models.OrderStatusPending,
		TotalCents:      total,
		Items:           items,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		if errors.Is(err, repositories.ErrOrderInvalid) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id int) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}

	items, err := s.orderRepo.ListItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list items for order %d: %w", id, err)
	}
	order.Items = items

	contributions, err := s.orderRepo.ListContributions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions for order %d: %w", id, err)
	}
	for _, c := range contributions {
		order.PaidCents += c.AmountCents
	}
	return order, nil
}

func (s *orderService) ListTeamOrders(ctx context.Context, teamID int) ([]models.Order, error) {
	orders, err := s.orderRepo.ListByTeamID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for team %d: %w", teamID, err)
	}

	paid, err := s.orderRepo.PaidTotals(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payments for team %d: %w", teamID, err)
	}
	for i := range orders {
		orders[i].PaidCents = paid[orders[i].ID]
	}
	return orders, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, id int, to models.OrderStatus, currentUserID int) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	if err := s.requireOwnerOrManager(ctx, order.TeamID, currentUserID); err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(to) {
		return nil, ErrOrderInvalidStatusTransition
	}

	if err := s.orderRepo.UpdateStatus(ctx, id, order.Status, to); err != nil {
		switch {
		case errors.Is(err, repositories.ErrOrderNotFound):
			return nil, ErrOrderNotFound
		case errors.Is(err, repositories.ErrOrderStatusConflict):
			return nil, ErrOrderInvalidStatusTransition
		}
		return nil, fmt.Errorf("failed to update order %d status: %w", id, err)
	}
	order.Status = to
	return order, nil
}

func (s *orderService) RecordContribution(ctx context.Context, input ContributionInput) (*models.PaymentContribution, error) {
	if _, err := s.orderRepo.GetByID(ctx, input.OrderID); err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %d: %w", input.OrderID, err)
	}

	contribution := &models.PaymentContribution{
		OrderID:     input.OrderID,
		PayerName:   strings.TrimSpace(input.PayerName),
		PayerEmail:  strings.ToLower(strings.TrimSpace(input.PayerEmail)),
		AmountCents: input.AmountCents,
		Method:      input.Method,
	}
	if err := s.orderRepo.AddContribution(ctx, contribution); err != nil {
		if errors.Is(err, repositories.ErrOrderInvalid) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to record contribution: %w", err)
	}
	return contribution, nil
}

func (s *orderService) requireOwnerOrManager(ctx context.Context, teamID, userID int) error {
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
