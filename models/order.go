package models

import "time"

type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "pending"
	OrderStatusOpen         OrderStatus = "open"
	OrderStatusPaid         OrderStatus = "paid"
	OrderStatusInProduction OrderStatus = "in_production"
	OrderStatusShipped      OrderStatus = "shipped"
	OrderStatusDelivered    OrderStatus = "delivered"
	OrderStatusCancelled    OrderStatus = "cancelled"
)

// orderTransitions mirrors the design-request table: one map, checked
// before any write. Cancelled and delivered are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:      {OrderStatusOpen, OrderStatusCancelled},
	OrderStatusOpen:         {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:         {OrderStatusInProduction, OrderStatusCancelled},
	OrderStatusInProduction: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:      {OrderStatusDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusOpen, OrderStatusPaid,
		OrderStatusInProduction, OrderStatusShipped, OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	}
	return false
}

func (from OrderStatus) CanTransition(to OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID              int         `json:"id" db:"id"`
	TeamID          int         `json:"team_id" db:"team_id"`
	DesignRequestID *int        `json:"design_request_id,omitempty" db:"design_request_id"`
	Status          OrderStatus `json:"status" db:"status"`
	TotalCents      int         `json:"total_cents" db:"total_cents"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`

	Items []OrderItem `json:"items,omitempty" db:"-"`

	// Display-only payment summary, not an enforced invariant.
	PaidCents int `json:"paid_cents" db:"-"`
}

type OrderItem struct {
	ID             int    `json:"id" db:"id"`
	OrderID        int    `json:"order_id" db:"order_id"`
	ProductID      int    `json:"product_id" db:"product_id"`
	PlayerName     string `json:"player_name" db:"player_name"`
	Size           string `json:"size" db:"size"`
	Quantity       int    `json:"quantity" db:"quantity"`
	UnitPriceCents int    `json:"unit_price_cents" db:"unit_price_cents"`
}

type PaymentContribution struct {
	ID          int       `json:"id" db:"id"`
	OrderID     int       `json:"order_id" db:"order_id"`
	PayerName   string    `json:"payer_name" db:"payer_name"`
	PayerEmail  string    `json:"payer_email" db:"payer_email"`
	AmountCents int       `json:"amount_cents" db:"amount_cents"`
	Method      string    `json:"method" db:"method"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
