package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kitlocker/kitlocker-server/models"
	"github.com/lib/pq"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderInvalid  = errors.New("order team or design request invalid")

	// ErrOrderStatusConflict mirrors the design-request rule: the
	// conditional UPDATE matched no row because the status moved.
	ErrOrderStatusConflict = errors.New("order status changed concurrently")
)

type OrderRepository interface {
	// Create inserts the order and its items. exec may be a
	// transaction so the order rides along with other writes (for
	// example production-order creation on design confirmation).
	Create(ctx context.Context, exec SQLExecutor, order *models.Order) error

	GetByID(ctx context.Context, id int) (*models.Order, error)
	ListByTeamID(ctx context.Context, teamID int) ([]models.Order, error)
	ListItems(ctx context.Context, orderID int) ([]models.OrderItem, error)
	UpdateStatus(ctx context.Context, id int, from, to models.OrderStatus) error
	AddContribution(ctx context.Context, contribution *models.PaymentContribution) error
	ListContributions(ctx context.Context, orderID int) ([]models.PaymentContribution, error)

	// PaidTotals returns sum(amount_cents) of contributions grouped by
	// order id for a whole team in one query.
	PaidTotals(ctx context.Context, teamID int) (map[int]int, error)

	CountByStatus(ctx context.Context, status models.OrderStatus) (int, error)
}

type postgresOrderRepository struct {
	db *sql.DB
}

func NewPostgresOrderRepository(db *sql.DB) OrderRepository {
	return &postgresOrderRepository{db: db}
}

const orderColumns = `id, team_id, design_request_id, status, total_cents, created_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID,
		&o.TeamID,
		&o.DesignRequestID,
		&o.Status,
		&o.TotalCents,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *postgresOrderRepository) Create(ctx context.Context, exec SQLExecutor, order *models.Order) error {
	if exec == nil {
		exec = r.db
	}

	query := `
		INSERT INTO orders (team_id, design_request_id, status, total_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		order.TeamID,
		order.DesignRequestID,
		order.Status,
		order.TotalCents,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrOrderInvalid
		}
		return err
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, player_name, size, quantity, unit_price_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := exec.QueryRowContext(ctx, itemQuery,
			item.OrderID,
			item.ProductID,
			item.PlayerName,
			item.Size,
			item.Quantity,
			item.UnitPriceCents,
		).Scan(&item.ID); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
				return ErrOrderInvalid
			}
			return err
		}
	}
	return nil
}

func (r *postgresOrderRepository) GetByID(ctx context.Context, id int) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *postgresOrderRepository) ListByTeamID(ctx context.Context, teamID int) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE team_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		order, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		orders = append(orders, *order)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *postgresOrderRepository) ListItems(ctx context.Context, orderID int) ([]models.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, player_name, size, quantity, unit_price_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.OrderItem, 0)
	for rows.Next() {
		var item models.OrderItem
		if scanErr := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.PlayerName,
			&item.Size,
			&item.Quantity,
			&item.UnitPriceCents,
		); scanErr != nil {
			return nil, scanErr
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *postgresOrderRepository) UpdateStatus(ctx context.Context, id int, from, to models.OrderStatus) error {
	query := `UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		var exists bool
		if checkErr := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); checkErr != nil {
			return checkErr
		}
		if !exists {
			return ErrOrderNotFound
		}
		return ErrOrderStatusConflict
	}
	return nil
}

func (r *postgresOrderRepository) AddContribution(ctx context.Context, contribution *models.PaymentContribution) error {
	query := `
		INSERT INTO payment_contributions (order_id, payer_name, payer_email, amount_cents, method)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		contribution.OrderID,
		contribution.PayerName,
		contribution.PayerEmail,
		contribution.AmountCents,
		contribution.Method,
	).Scan(&contribution.ID, &contribution.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrOrderInvalid
		}
		return err
	}
	return nil
}

func (r *postgresOrderRepository) ListContributions(ctx context.Context, orderID int) ([]models.PaymentContribution, error) {
	query := `
		SELECT id, order_id, payer_name, payer_email, amount_cents, method, created_at
		FROM payment_contributions
		WHERE order_id = $1
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contributions := make([]models.PaymentContribution, 0)
	for rows.Next() {
		var c models.PaymentContribution
		if scanErr := rows.Scan(
			&c.ID,
			&c.OrderID,
			&c.PayerName,
			&c.PayerEmail,
			&c.AmountCents,
			&c.Method,
			&c.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		contributions = append(contributions, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return contributions, nil
}

func (r *postgresOrderRepository) PaidTotals(ctx context.Context, teamID int) (map[int]int, error) {
	query := `
		SELECT o.id, COALESCE(SUM(p.amount_cents), 0)
		FROM orders o
		LEFT JOIN payment_contributions p ON p.order_id = o.id
		WHERE o.team_id = $1
		GROUP BY o.id`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[int]int)
	for rows.Next() {
		var orderID, paid int
		if scanErr := rows.Scan(&orderID, &paid); scanErr != nil {
			return nil, scanErr
		}
		totals[orderID] = paid
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *postgresOrderRepository) CountByStatus(ctx context.Context, status models.OrderStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE status = $1`, status).Scan(&count)
	return count, err
}
